// Package store persists the user's default detection mode.
//
// A single key, "detection_mode", holds the mode name. A store with no
// value reports port.ModeAuto. [Badger] keeps it on disk across restarts;
// [Memory] is for tests and ephemeral daemons.
package store

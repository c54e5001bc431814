// Package port arbitrates whether a shared jack acts as a headset port or
// as a USB On-The-Go host port.
//
// Hardware often cannot tell an OTG adapter from headphones without a
// microphone. The [Arbiter] resolves the ambiguity by enabling the OTG line
// speculatively and waiting a bounded time for a USB peripheral to appear;
// if none does, the port is committed to headset mode.
//
// # Pipeline
//
// Raw events from a [hal.Backend] pass through a [Normalizer], which
// deduplicates them into a closed set of [Signal] values. The arbiter
// consumes those signals on a single worker and emits intents to its
// [Effects]: the OTG [Line], the persisted [ModeStore], a [Notifier] and an
// [Announcer].
//
//	arb := port.New(port.Effects{Line: backend, Store: store, Notifier: hub, Announcer: hub})
//	norm := port.NewNormalizer(arb, backend, store)
//	go arb.Run(ctx)
//	go norm.Pump(ctx, backend.Events())
//
// # States
//
//	Disconnected --HeadsetConnected(auto)--> DetectWait --ProbeTimeout--> HeadsetMode
//	                                          |
//	                                          +--USBDeviceConnected--> OTGMode
//
// A DetectionModeChanged signal received outside Disconnected forces a
// return to Disconnected and is re-delivered there before any other signal.
package port

package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
)

// Badger is a mode store backed by BadgerDB v4.
type Badger struct {
	db       *badger.DB
	inMemory bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk persistence).
	InMemory bool

	// Logger sets the badger logger. If nil, badger output is routed to
	// the store component logger.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed mode store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, fmt.Errorf("%w: store directory required for on-disk mode", pkg.ErrInvalidParameter)
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(storeLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open mode store: %w", err)
	}
	pkg.LogDebug(pkg.ComponentStore, "mode store opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	return &Badger{db: db, inMemory: opts.InMemory}, nil
}

// DefaultMode returns the stored mode, or port.ModeAuto when none is
// stored.
func (b *Badger) DefaultMode(_ context.Context) (port.Mode, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyDetectionMode))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return port.ModeAuto, nil
	}
	if err != nil {
		return port.ModeAuto, fmt.Errorf("read %s: %w", keyDetectionMode, err)
	}
	return decodeMode(val)
}

// SetDefaultMode durably stores mode. On-disk writes are synced before
// it returns.
func (b *Badger) SetDefaultMode(_ context.Context, mode port.Mode) error {
	val, err := encodeMode(mode)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyDetectionMode), val)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", keyDetectionMode, err)
	}
	if !b.inMemory {
		if err := b.db.Sync(); err != nil {
			return fmt.Errorf("sync mode store: %w", err)
		}
	}
	pkg.LogInfo(pkg.ComponentStore, "default mode saved", "mode", mode)
	return nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// storeLogger routes badger output to the store component, suppressing
// debug and info level messages.
type storeLogger struct{}

func (storeLogger) Errorf(f string, v ...interface{}) {
	pkg.LogError(pkg.ComponentStore, fmt.Sprintf("badger: "+f, v...))
}
func (storeLogger) Warningf(f string, v ...interface{}) {
	pkg.LogWarn(pkg.ComponentStore, fmt.Sprintf("badger: "+f, v...))
}
func (storeLogger) Infof(string, ...interface{})  {}
func (storeLogger) Debugf(string, ...interface{}) {}

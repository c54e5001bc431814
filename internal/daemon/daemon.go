// Package daemon assembles otgmoded from its configuration: HAL backend,
// mode store, arbiter, normalizer, notification hub, and control API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/internal/health"
	"github.com/ardnew/otgmode/internal/notify"
	"github.com/ardnew/otgmode/internal/observe"
	"github.com/ardnew/otgmode/internal/server"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port"
	"github.com/ardnew/otgmode/port/hal"
	"github.com/ardnew/otgmode/port/hal/usbid"
	"github.com/ardnew/otgmode/store"
)

// Version is reported in telemetry and by the version command.
var Version = "dev"

// modeStore is a port.ModeStore that owns resources.
type modeStore interface {
	port.ModeStore
	Close() error
}

// Daemon is one running instance of otgmoded.
type Daemon struct {
	cfg *config.Config

	backend    hal.Backend
	store      modeStore
	hub        *notify.Hub
	arbiter    *port.Arbiter
	normalizer *port.Normalizer
	provider   *observe.Provider
	server     *server.Server
	names      *usbid.IDs

	running     atomic.Bool
	releaseOnce sync.Once
}

// New builds a daemon from cfg. Nothing is started until Run.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg.HAL)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	obs := observe.NewObserver(provider.Metrics())
	obs.Initial(port.StateDisconnected)

	d := &Daemon{
		cfg:      cfg,
		backend:  backend,
		store:    st,
		hub:      notify.NewHub(),
		provider: provider,
		names:    openNames(cfg.HAL.USBIDs),
	}
	fx := port.Effects{
		Line:      backend,
		Store:     st,
		Notifier:  d.hub,
		Announcer: d.hub,
	}
	d.arbiter = port.New(fx,
		port.WithProbeTimeout(cfg.Arbiter.ProbeTimeout),
		port.WithObserver(obs),
	)
	d.normalizer = port.NewNormalizer(d.arbiter, backend, st)

	if cfg.Server.ListenAddr != "" {
		d.server, err = server.New(server.Options{
			Addr:           cfg.Server.ListenAddr,
			Arbiter:        d.arbiter,
			Modes:          d.normalizer,
			Hub:            d.hub,
			Store:          st,
			Line:           backend,
			Devices:        backend,
			Names:          d.names,
			Profiling:      cfg.Server.Pprof,
			Health:         health.New(d.checkers()...),
			Metrics:        provider.Metrics(),
			MetricsHandler: provider.Handler(),
		})
		if err != nil {
			d.release(ctx)
			return nil, err
		}
	}
	return d, nil
}

func openNames(path string) *usbid.IDs {
	if path == "" {
		return usbid.Open()
	}
	return usbid.Open(path)
}

func openStore(cfg config.StoreConfig) (modeStore, error) {
	if cfg.InMemory {
		return store.NewMemory(), nil
	}
	return store.NewBadger(store.BadgerOptions{Dir: cfg.Dir})
}

// Arbiter returns the port arbiter.
func (d *Daemon) Arbiter() *port.Arbiter { return d.arbiter }

// Normalizer returns the event normalizer.
func (d *Daemon) Normalizer() *port.Normalizer { return d.normalizer }

// Hub returns the notification hub.
func (d *Daemon) Hub() *notify.Hub { return d.hub }

// Run starts the backend, reconciles the arbiter with the hardware present
// at startup, and serves until ctx is cancelled or a component fails.
// Resources are released before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.release(context.Background())

	if err := d.backend.Start(ctx); err != nil {
		return fmt.Errorf("start backend: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.running.Store(true)
		defer d.running.Store(false)
		return ignoreCanceled(d.arbiter.Run(gctx))
	})

	headset, err := d.backend.Headset()
	if err != nil {
		pkg.LogWarn(pkg.ComponentDaemon, "headset state unavailable, assuming unplugged", "error", err)
		headset = hal.HeadsetState{}
	}
	if err := d.normalizer.Sync(gctx, headset); err != nil {
		pkg.LogWarn(pkg.ComponentDaemon, "initial sync failed", "error", err)
	}

	events := d.countEvents(gctx, d.backend.Events())
	g.Go(func() error {
		return ignoreCanceled(d.normalizer.Pump(gctx, events))
	})

	if d.server != nil {
		g.Go(func() error {
			return d.server.ListenAndServe(gctx)
		})
	}

	pkg.LogInfo(pkg.ComponentDaemon, "otgmoded running",
		"backend", d.cfg.HAL.Backend,
		"probe_timeout", d.cfg.Arbiter.ProbeTimeout,
		"listen", d.cfg.Server.ListenAddr,
	)

	err = g.Wait()
	pkg.LogInfo(pkg.ComponentDaemon, "otgmoded stopping", "error", err)
	return err
}

// countEvents forwards raw events to the normalizer, counting each.
func (d *Daemon) countEvents(ctx context.Context, in <-chan hal.Event) <-chan hal.Event {
	out := make(chan hal.Event)
	m := d.provider.Metrics()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				m.RecordHardwareEvent(ctx, ev.Kind.String())
				if ev.Kind == hal.EventUSBAttach {
					pkg.LogInfo(pkg.ComponentDaemon, "peripheral attached",
						"device", ev.Device.Name,
						"product", d.names.Describe(ev.Device.VendorID, ev.Device.ProductID),
					)
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (d *Daemon) checkers() []health.Checker {
	return []health.Checker{
		{Name: "arbiter", Check: func(context.Context) error {
			if !d.running.Load() {
				return pkg.ErrNotRunning
			}
			return nil
		}},
		{Name: "hal", Check: func(context.Context) error {
			_, err := d.backend.Headset()
			return err
		}},
		{Name: "store", Check: func(ctx context.Context) error {
			_, err := d.store.DefaultMode(ctx)
			return err
		}},
	}
}

func (d *Daemon) release(ctx context.Context) {
	d.releaseOnce.Do(func() { d.releaseResources(ctx) })
}

func (d *Daemon) releaseResources(ctx context.Context) {
	d.arbiter.Close()
	if err := d.backend.Close(); err != nil {
		pkg.LogWarn(pkg.ComponentDaemon, "close backend", "error", err)
	}
	if err := d.store.Close(); err != nil {
		pkg.LogWarn(pkg.ComponentDaemon, "close store", "error", err)
	}
	if err := d.provider.Shutdown(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentDaemon, "shutdown metrics", "error", err)
	}
}

// ignoreCanceled maps the errors of an orderly shutdown to nil.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, pkg.ErrStopped) {
		return nil
	}
	return err
}

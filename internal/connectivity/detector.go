// Package connectivity turns periodic reachability probes into an observable
// online/offline signal and auto-triggers a full sync pass when connectivity
// comes back.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/log"
)

// Prober reports whether the remote service is currently reachable. The REST
// remote client satisfies this with its health endpoint.
type Prober interface {
	Healthy(ctx context.Context) bool
}

// Syncer is the sync entry point fired on reconnect.
type Syncer interface {
	SyncAll(ctx context.Context) (int, error)
}

// Detector polls the prober on a fixed interval and tracks the last observed
// state. Subscribers are notified on every transition; ordering between
// subscribers is not guaranteed.
type Detector struct {
	prober       Prober
	syncer       Syncer
	interval     time.Duration
	probeTimeout time.Duration
	log          *log.Logger

	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDetector builds a detector and takes the initial state from a
// synchronous probe. Call Start to begin watching.
func NewDetector(prober Prober, syncer Syncer, interval, probeTimeout time.Duration) *Detector {
	d := &Detector{
		prober:       prober,
		syncer:       syncer,
		interval:     interval,
		probeTimeout: probeTimeout,
		log:          log.Default(log.ComponentConnectivity),
		subs:         make(map[int]func(bool)),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	d.online = d.probe(context.Background())
	return d
}

// Start launches the watch loop.
func (d *Detector) Start() {
	go d.watch()
}

// IsOnline reports the last observed state, not a live poll.
func (d *Detector) IsOnline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

func (d *Detector) IsOffline() bool {
	return !d.IsOnline()
}

// Subscribe registers a listener invoked on every transition and returns a
// function that removes it.
func (d *Detector) Subscribe(fn func(online bool)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.subs[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Close stops the watch loop and clears all subscribers. Must be called if
// the detector's lifetime is shorter than the process's.
func (d *Detector) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	d.mu.Lock()
	d.subs = make(map[int]func(bool))
	d.mu.Unlock()
}

func (d *Detector) watch() {
	defer close(d.doneCh)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.observe(d.probe(context.Background()))
		}
	}
}

func (d *Detector) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()
	return d.prober.Healthy(ctx)
}

// observe applies a probe result, notifying subscribers and kicking off a
// sync pass on the offline-to-online transition.
func (d *Detector) observe(online bool) {
	d.mu.Lock()
	if online == d.online {
		d.mu.Unlock()
		return
	}
	d.online = online
	subs := make([]func(bool), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	d.log.Info("Connectivity changed", "online", online)

	for _, fn := range subs {
		fn(online)
	}

	if online && d.syncer != nil {
		// Fire-and-forget: there is no caller to surface a failure to here;
		// anything still pending is retried on the next transition.
		go func() {
			count, err := d.syncer.SyncAll(context.Background())
			if err != nil {
				d.log.Error("Reconnect sync failed", "error", err)
				return
			}
			if count > 0 {
				d.log.Info("Reconnect sync completed", "synced", count)
			}
		}()
	}
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Prober is a polling ConnectivitySignal. It pings the remote service on a
// fixed interval and notifies subscribers on each offline-to-online edge.
// Before the first probe completes it reports online, so startup writes are
// attempted rather than preemptively queued.
type Prober struct {
	ping     func(ctx context.Context) bool
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	online bool
	subs   []func()
}

// NewProber builds a prober around a ping function (typically
// remote.Client.Ping).
func NewProber(ping func(ctx context.Context) bool, interval time.Duration, log zerolog.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{ping: ping, interval: interval, log: log, online: true}
}

// IsOnline reports the most recent probe result.
func (p *Prober) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// OnOnline registers a callback fired on every offline-to-online transition.
func (p *Prober) OnOnline(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Run probes until ctx is cancelled. It is intended to be launched as a
// goroutine from main.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Observe(p.ping(ctx))
		}
	}
}

// Observe records a connectivity observation, firing subscribers when the
// state flips from offline to online. Exported so transports that learn
// about connectivity as a side effect (a failed request, say) can feed the
// same signal the prober does.
func (p *Prober) Observe(online bool) {
	p.mu.Lock()
	wasOnline := p.online
	p.online = online
	var subs []func()
	if online && !wasOnline {
		subs = append(subs, p.subs...)
	}
	p.mu.Unlock()

	if online != wasOnline {
		p.log.Info().Bool("online", online).Msg("connectivity changed")
	}
	for _, fn := range subs {
		fn()
	}
}

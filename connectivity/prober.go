package connectivity

import (
	"context"
	"net"
	"sync"
	"time"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// Prober is a Monitor that infers reachability by periodically dialing a
// probe target. It only reports transitions, never repeated states.
type Prober struct {
	addr     string
	interval time.Duration
	timeout  time.Duration

	closeOnce sync.Once
	stop      chan struct{}
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeInterval sets how often the target is dialed.
func WithProbeInterval(interval time.Duration) ProberOption {
	return func(p *Prober) {
		p.interval = interval
	}
}

// WithProbeTimeout sets the dial timeout per probe.
func WithProbeTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// NewProber creates a prober dialing the given host:port target.
func NewProber(addr string, opts ...ProberOption) *Prober {
	p := &Prober{
		addr:     addr,
		interval: defaultProbeInterval,
		timeout:  defaultProbeTimeout,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins probing. The first probe runs immediately.
func (p *Prober) Start(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event, 1)

	go func() {
		defer close(events)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		online := p.probe()
		emit(events, online)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				now := p.probe()
				if now != online {
					online = now
					emit(events, online)
				}
			}
		}
	}()

	return events, nil
}

// Close stops probing and closes the event channel.
func (p *Prober) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
	})
	return nil
}

func (p *Prober) probe() bool {
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func emit(events chan<- Event, online bool) {
	kind := Offline
	if online {
		kind = Online
	}
	select {
	case events <- Event{Kind: kind}:
	default:
	}
}

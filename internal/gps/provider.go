package gps

import (
	"context"
	"sync"
)

type Permission int

const (
	PermissionGranted Permission = iota
	PermissionDenied
	PermissionServiceDisabled
)

// Provider is the location source contract. Positions returns a push-based
// stream that closes when ctx is cancelled.
type Provider interface {
	CheckPermission(ctx context.Context) (Permission, error)
	CurrentPosition(ctx context.Context) (LocationPoint, error)
	Positions(ctx context.Context) (<-chan LocationPoint, error)
}

// PushProvider is a Provider fed externally one fix at a time, in this
// deployment by the POST /gps/points handler standing in for device GPS.
type PushProvider struct {
	mu      sync.Mutex
	last    *LocationPoint
	sub     chan LocationPoint
	fix     chan struct{}
	fixOnce sync.Once
}

func NewPushProvider() *PushProvider {
	return &PushProvider{fix: make(chan struct{})}
}

func (p *PushProvider) CheckPermission(_ context.Context) (Permission, error) {
	return PermissionGranted, nil
}

// Push feeds one fix to the current position and any active subscriber.
// When the subscriber channel is full the fix is dropped rather than
// blocking the producer.
func (p *PushProvider) Push(point LocationPoint) {
	p.mu.Lock()
	p.last = &point
	if p.sub != nil {
		select {
		case p.sub <- point:
		default:
		}
	}
	p.mu.Unlock()
	p.fixOnce.Do(func() { close(p.fix) })
}

// CurrentPosition blocks until at least one fix has been pushed or ctx ends.
func (p *PushProvider) CurrentPosition(ctx context.Context) (LocationPoint, error) {
	select {
	case <-p.fix:
	case <-ctx.Done():
		return LocationPoint{}, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.last, nil
}

func (p *PushProvider) Positions(ctx context.Context) (<-chan LocationPoint, error) {
	ch := make(chan LocationPoint, 64)
	p.mu.Lock()
	p.sub = ch
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		if p.sub == ch {
			p.sub = nil
		}
		close(ch)
		p.mu.Unlock()
	}()
	return ch, nil
}

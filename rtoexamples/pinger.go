package rtoexamples

import (
	"context"
	"sync"

	"github.com/go-rto/rto"
	"golang.org/x/xerrors"
)

// Barrier is a reusable cyclic barrier of fixed width, used by scenario 4 to
// prove that call_slots and thread_pool concurrent calls are each served
// independently rather than serialized.
type Barrier struct {
	mu      sync.Mutex
	width   int
	waiting int
	gen     chan struct{}
}

// NewBarrier constructs a barrier that releases every Arrive once width
// parties have called it.
func NewBarrier(width int) *Barrier {
	return &Barrier{width: width, gen: make(chan struct{})}
}

// Arrive blocks until width total arrivals (across all callers) have
// happened, then releases all of them together.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	b.waiting++
	if b.waiting == b.width {
		ch := b.gen
		b.waiting = 0
		b.gen = make(chan struct{})
		b.mu.Unlock()
		close(ch)
		return
	}
	ch := b.gen
	b.mu.Unlock()
	<-ch
}

// Pinger is scenario 4's barrier-synchronized call: 64 concurrent
// ping_barrier() calls all block until the last one arrives.
type Pinger interface {
	PingBarrier()
}

type pingerImpl struct {
	barrier *Barrier
}

// NewPinger wraps barrier as a Pinger whose PingBarrier arrives at it.
func NewPinger(barrier *Barrier) Pinger { return &pingerImpl{barrier: barrier} }

func (p *pingerImpl) PingBarrier() { p.barrier.Arrive() }

var methodPingerPingBarrier uint32 = 0

func init() {
	rto.RegisterMethodID("Pinger", "PingBarrier", func(id uint32) { methodPingerPingBarrier = id })
}

// PingerSkeleton adapts a Pinger implementation to rto.Dispatcher.
type PingerSkeleton struct {
	Impl Pinger
}

// NewPingerSkeleton wraps impl for registration.
func NewPingerSkeleton(impl Pinger) rto.Skeleton {
	return rto.NewSkeleton("Pinger", PingerSkeleton{Impl: impl})
}

func (s PingerSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	switch methodID {
	case methodPingerPingBarrier:
		s.Impl.PingBarrier()
		return nil, nil
	default:
		return nil, xerrors.Errorf("rtoexamples: Pinger: unknown method %d", methodID)
	}
}

// PingerProxy pairs a ProxyHandle with the Pinger call signature.
type PingerProxy struct {
	rto.ProxyHandle
}

// NewPingerProxy wraps h as a Pinger proxy.
func NewPingerProxy(h rto.ProxyHandle) PingerProxy { return PingerProxy{h} }

func (p PingerProxy) PingBarrier(ctx context.Context) error {
	return p.Call(ctx, "Pinger", "PingBarrier", methodPingerPingBarrier, struct{}{}, nil)
}

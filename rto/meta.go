package rto

import (
	"context"
	"sync"
	"time"
)

// metaMethodFirmClose is the one method the meta service exposes: the
// peer calling it is declaring "I have called firm_close".
const metaMethodFirmClose uint32 = 0

// metaService is the built-in object installed at ObjectIdMeta on every
// Context, used to implement symmetric shutdown (spec.md §4.9).
type metaService struct {
	barrier *firmCloseBarrier
}

func (m *metaService) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	if methodID == metaMethodFirmClose {
		m.barrier.markPeerCalled()
		return nil, nil
	}
	return nil, nil
}

// firmCloseBarrier is the two-party rendezvous firm_close blocks on: it
// releases only once both this side and the peer have called firm_close.
type firmCloseBarrier struct {
	mu       sync.Mutex
	self     bool
	peer     bool
	released bool
	ch       chan struct{}
}

func newFirmCloseBarrier() *firmCloseBarrier {
	return &firmCloseBarrier{ch: make(chan struct{})}
}

func (b *firmCloseBarrier) markSelfCalled() { b.mark(true, false) }
func (b *firmCloseBarrier) markPeerCalled() { b.mark(false, true) }

func (b *firmCloseBarrier) mark(self, peer bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if self {
		b.self = true
	}
	if peer {
		b.peer = true
	}
	if b.self && b.peer && !b.released {
		b.released = true
		close(b.ch)
	}
}

// wait blocks until both parties have called, or ctx is done.
func (b *firmCloseBarrier) wait(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		return ErrFirmCloseTimeout
	}
}

// firmClose implements Context.FirmClose: mark our own side, send the
// remote meta call, then wait for the rendezvous. The timeout argument is
// honored via context.WithTimeout, resolving the open question spec.md §9
// notes (the originating design ignores this argument).
func firmClose(c *Context, timeout time.Duration) error {
	c.firmCloseBarrier.markSelfCalled()

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	_, err := c.client.call(ObjectIdMeta, metaMethodFirmClose, nil)
	if err != nil && !(c.gcDisabled() && wrapTransportErr(err) == ErrTransportTerminated) {
		return err
	}

	if err := c.firmCloseBarrier.wait(ctx); err != nil {
		return err
	}
	if err := c.transitionToDraining(); err != nil {
		return err
	}
	c.joinGoroutines()
	return nil
}

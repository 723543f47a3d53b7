// Package rtotest provides an in-process Transport for exercising rto
// without a real socket, grounded on the teacher package's own test
// harness (golang.org/x/tools/internal/jsonrpc2_v2's pipe-backed
// net.Conn pair used throughout its _test.go files).
package rtotest

import (
	"sync"
	"time"

	"github.com/go-rto/rto"
)

// frame is one length-delimited message queued between the two halves of
// a Pipe.
type frame struct {
	data []byte
}

// halfPipe is one direction of communication: an unbounded queue plus a
// terminate signal, implementing both rto.TransportSend and
// rto.TransportRecv depending on which end holds it.
type halfPipe struct {
	mu         sync.Mutex
	queue      []frame
	notify     chan struct{}
	terminated chan struct{}
	termOnce   sync.Once
}

func newHalfPipe() *halfPipe {
	return &halfPipe{
		notify:     make(chan struct{}, 1),
		terminated: make(chan struct{}),
	}
}

func (h *halfPipe) push(data []byte) {
	h.mu.Lock()
	h.queue = append(h.queue, frame{data: data})
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *halfPipe) pop() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil, false
	}
	f := h.queue[0]
	h.queue = h.queue[1:]
	return f.data, true
}

func (h *halfPipe) terminate() {
	h.termOnce.Do(func() { close(h.terminated) })
}

// sendEnd is the write side of a halfPipe, satisfying rto.TransportSend.
type sendEnd struct{ h *halfPipe }

func (s sendEnd) Send(data []byte, timeout time.Duration) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case <-s.h.terminated:
		return rto.ErrTransportTerminated
	default:
	}
	s.h.push(cp)
	return nil
}

func (s sendEnd) CreateTerminator() rto.Terminator { return pipeTerminator{s.h} }

// recvEnd is the read side of a halfPipe, satisfying rto.TransportRecv.
type recvEnd struct{ h *halfPipe }

func (r recvEnd) Recv(timeout time.Duration) ([]byte, error) {
	var timedOut <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timedOut = t.C
	}
	for {
		if data, ok := r.h.pop(); ok {
			return data, nil
		}
		select {
		case <-r.h.notify:
			continue
		case <-r.h.terminated:
			return nil, rto.ErrTransportTerminated
		case <-timedOut:
			return nil, rto.ErrTransportTimeout
		}
	}
}

func (r recvEnd) CreateTerminator() rto.Terminator { return pipeTerminator{r.h} }

type pipeTerminator struct{ h *halfPipe }

func (t pipeTerminator) Terminate() { t.h.terminate() }

// NewPipe builds a pair of connected rto.Transport values: packets sent on
// one side's Send arrive on the other's Recv, and vice versa. This is the
// harness every scenario test in this module's rtoexamples package uses in
// place of a real socket.
func NewPipe() (a, b rto.Transport) {
	ab := newHalfPipe() // a -> b
	ba := newHalfPipe() // b -> a
	a = rto.Transport{Send: sendEnd{ab}, Recv: recvEnd{ba}}
	b = rto.Transport{Send: sendEnd{ba}, Recv: recvEnd{ab}}
	return a, b
}

package rto

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// client originates calls: acquire a slot, send the request, wait on that
// slot's response channel. Grounded on jsonrpc2.Conn.Call's
// register-before-send ordering (to avoid racing the response) and its
// select between the response and a cancellation signal.
type client struct {
	send        TransportSend
	slots       *slotPool
	callTimeout time.Duration
	log         *logrus.Entry

	terminateOnce sync.Once
	terminated    chan struct{}
}

func newClient(send TransportSend, callSlots int, callTimeout time.Duration, log *logrus.Entry) *client {
	return &client{
		send:        send,
		slots:       newSlotPool(callSlots),
		callTimeout: callTimeout,
		log:         log,
		terminated:  make(chan struct{}),
	}
}

// pump consumes the Multiplexer's response queue and delivers each packet
// into the slot its SlotID names. It returns when responses is closed
// (Multiplexer drained).
func (c *client) pump(responses <-chan Packet) {
	for pkt := range responses {
		s := c.slots.byID(pkt.Slot)
		if s == nil {
			c.log.Warnf("rto: response for unknown slot %d", pkt.SlotID())
			continue
		}
		select {
		case s.response <- pkt:
		default:
			c.log.Warnf("rto: slot %d already has a pending response, dropping", pkt.SlotID())
		}
	}
}

// call sends a request for (object, method, payload) and waits for the
// correlated response, honoring callTimeout across acquisition, send, and
// the wait, per spec.md §4.3.
func (c *client) call(object ObjectId, method uint32, payload []byte) ([]byte, error) {
	var timer *time.Timer
	var timedOut <-chan time.Time
	if c.callTimeout > 0 {
		timer = time.NewTimer(c.callTimeout)
		defer timer.Stop()
		timedOut = timer.C
	}

	var s *slot
	select {
	case s = <-c.slots.free:
	case <-c.terminated:
		return nil, ErrTransportTerminated
	case <-timedOut:
		return nil, ErrTransportTimeout
	}

	req := requestPacket(object, method, payload)
	req.Slot = s.id | requestBit

	if err := c.send.Send(req.encode(), c.callTimeout); err != nil {
		c.slots.release(s)
		return nil, wrapTransportErr(err)
	}

	select {
	case resp := <-s.response:
		c.slots.release(s)
		return resp.Payload, nil
	case <-timedOut:
		c.slots.release(s)
		return nil, ErrTransportTimeout
	case <-c.terminated:
		c.slots.release(s)
		return nil, ErrTransportTerminated
	}
}

// terminate releases every blocked or future caller with
// ErrTransportTerminated. Called once the Multiplexer has observed the
// transport closing. Safe to call more than once.
func (c *client) terminate() {
	c.terminateOnce.Do(func() { close(c.terminated) })
}

package rto

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// server holds the transport send half, the Forwarder, and a bounded
// dispatch pool. For each request it submits a job to the pool, which
// invokes Forwarder.dispatch and sends back a response packet carrying the
// same slot, object id and method id (spec.md §4.4).
type server struct {
	send      TransportSend
	forwarder *forwarder
	log       *logrus.Entry

	pool *semaphore.Weighted

	// activeCalls counts dispatch jobs that have started but not yet sent
	// their response; Shutdown waits for it to drain before returning, so
	// a goroutine is never still writing a response after the Context
	// considers itself closed (spec.md's "dedicated active-call counter").
	activeCalls sync.WaitGroup
}

func newServer(send TransportSend, fw *forwarder, threadPool int, log *logrus.Entry) *server {
	if threadPool <= 0 {
		threadPool = 1
	}
	return &server{
		send:      send,
		forwarder: fw,
		log:       log,
		pool:      semaphore.NewWeighted(int64(threadPool)),
	}
}

// run consumes the Multiplexer's request queue until it is closed
// (transport drained), submitting one dispatch job per request.
func (s *server) run(ctx context.Context, requests <-chan Packet) {
	for req := range requests {
		s.activeCalls.Add(1)
		if err := s.pool.Acquire(ctx, 1); err != nil {
			// context cancelled during shutdown; still must not leak the
			// counted call.
			s.activeCalls.Done()
			continue
		}
		go func(req Packet) {
			defer s.pool.Release(1)
			defer s.activeCalls.Done()
			s.handle(ctx, req)
		}(req)
	}
}

func (s *server) handle(ctx context.Context, req Packet) {
	reply, err := s.forwarder.dispatch(ctx, req.Object, req.Method, req.Payload)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"object": req.Object,
			"method": req.Method,
		}).Error("rto: dispatch failed")
		reply = nil
	}
	resp := responsePacket(req, reply)
	if werr := s.send.Send(resp.encode(), 0); werr != nil {
		s.log.WithError(werr).Warn("rto: failed to send response")
	}
}

// shutdown waits for every in-flight dispatch job to finish sending its
// response.
func (s *server) shutdown() {
	s.activeCalls.Wait()
}

package rto

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rto/rto/codec"
	"github.com/sirupsen/logrus"
)

// contextState is the Running -> Draining -> Closed state machine spec.md
// §4.10 names.
type contextState int32

const (
	stateRunning contextState = iota
	stateDraining
	stateClosed
)

// Context is one end of a connection: it owns the registry, Client,
// Server, Multiplexer, the meta service, and the transport halves
// (spec.md §2). Two peers each hold a Context; the design is symmetric.
type Context struct {
	cfg       Config
	wireCodec Codec
	log       *logrus.Entry

	transport Transport
	recvTerm  Terminator
	sendTerm  Terminator
	mux       *multiplexer
	client    *client
	server    *server
	forwarder *forwarder

	firmCloseBarrier *firmCloseBarrier
	gcDisabledFlag   int32 // atomic bool

	state     int32 // atomic contextState
	drainOnce sync.Once
	wg        sync.WaitGroup
}

// InitialService describes how an optional initial service is wired at
// construction: at most one of Export/Import is set.
type InitialService struct {
	Export Skeleton
	Import *HandleToExchange
}

// NewContext constructs a Context around transport. If initial is non-nil
// and initial.Export is set, that skeleton is registered at
// ObjectIdInitial. initial.Import is not stored: NewContext keeps no
// imported handle, and the peer's initial service is reached with
// ImportFromHandle(HandleToExchange{ID: ObjectIdInitial}).
func NewContext(transport Transport, cfg Config, initial *InitialService, wireCodec Codec) *Context {
	cfg = cfg.withDefaults()
	if wireCodec == nil {
		wireCodec = codec.Default
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("rto.context", cfg.Name)

	c := &Context{
		cfg:              cfg,
		wireCodec:        wireCodec,
		log:              log,
		transport:        transport,
		recvTerm:         transport.Recv.CreateTerminator(),
		sendTerm:         transport.Send.CreateTerminator(),
		forwarder:        newForwarder(cfg.MaximumServicesNum),
		firmCloseBarrier: newFirmCloseBarrier(),
	}
	c.forwarder.bindPort(c)

	barrier := c.firmCloseBarrier
	c.forwarder.registerAt(ObjectIdMeta, NewSkeleton("rto.Meta", &metaService{barrier: barrier}))

	if initial != nil {
		switch {
		case initial.Export.d != nil:
			c.forwarder.registerAt(ObjectIdInitial, initial.Export)
		case initial.Import != nil:
			// Import-only construction adds no registry entry and does
			// not keep the handle.
		}
	}

	c.mux = newMultiplexer(transport.Recv, log)
	c.client = newClient(transport.Send, cfg.CallSlots, cfg.CallTimeout, log)
	c.server = newServer(transport.Send, c.forwarder, cfg.ThreadPool, log)

	c.wg.Add(4)
	go func() { defer c.wg.Done(); c.mux.run() }()
	go func() { defer c.wg.Done(); c.client.pump(c.mux.responses) }()
	go func() {
		defer c.wg.Done()
		c.server.run(context.Background(), c.mux.requests)
	}()
	go func() { defer c.wg.Done(); c.watchTransport() }()

	return c
}

// watchTransport transitions the Context to Draining once the Multiplexer
// observes the transport closing.
func (c *Context) watchTransport() {
	<-c.mux.closed
	c.transitionToDraining()
}

// transitionToDraining moves Running -> Draining exactly once, in the order
// spec.md §4.10 requires: the receive half is terminated first (unblocking
// the Multiplexer's read loop so requests/responses stop arriving and the
// Client/Server can see their channels close), then the Client releases all
// blocked callers and the Server's in-flight dispatch jobs are joined (each
// still able to send its response), and only then is the send half
// terminated and the registry cleared without sending delete traffic.
// Terminating the send half any earlier would race an in-flight dispatch's
// response send (server.go's activeCalls), silently losing it — exactly the
// failure firm_close's rendezvous (spec.md §8 scenario 6) must not hit.
// Entry to Draining is triggered by transport termination, a firm_close
// completion, or an explicit Close call. It must never be called from a
// goroutine that then waits on c.wg (see joinGoroutines) — watchTransport,
// one of the waited-on goroutines, calls this directly.
func (c *Context) transitionToDraining() error {
	c.drainOnce.Do(func() {
		atomic.StoreInt32(&c.state, int32(stateDraining))
		c.recvTerm.Terminate()
		c.client.terminate()
		c.server.shutdown()
		c.sendTerm.Terminate()
		c.forwarder.clear()
		atomic.StoreInt32(&c.state, int32(stateClosed))
	})
	return nil
}

// joinGoroutines waits for the Multiplexer, Client pump, Server loop, and
// transport watcher to exit. Only safe to call from outside those four
// goroutines (Close and FirmClose, never watchTransport itself).
func (c *Context) joinGoroutines() { c.wg.Wait() }

// Close tears the Context down explicitly and waits for every goroutine it
// started to exit, so that no goroutine survives the call returning
// (spec.md §8). Safe to call more than once and safe to call concurrently
// with an in-flight FirmClose.
func (c *Context) Close() error {
	err := c.transitionToDraining()
	c.joinGoroutines()
	return err
}

// State reports the current lifecycle state, mostly for tests.
func (c *Context) State() string {
	switch contextState(atomic.LoadInt32(&c.state)) {
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	default:
		return "closed"
	}
}

// Done returns a channel that's closed once the underlying transport has
// drained, whether because the peer hung up or because this side's
// Close/FirmClose terminated it. Useful for a server loop that should stop
// once a client goes away.
func (c *Context) Done() <-chan struct{} { return c.mux.closed }

func (c *Context) isClosed() bool {
	return contextState(atomic.LoadInt32(&c.state)) != stateRunning
}

// RegisterService registers skeleton for raw export and returns the
// resulting handle (spec.md §6.3).
func (c *Context) RegisterService(skeleton Skeleton) (HandleToExchange, error) {
	id, err := c.forwarder.register(skeleton)
	if err != nil {
		return HandleToExchange{}, err
	}
	return HandleToExchange{ID: id}, nil
}

// ImportFromHandle imports h for raw use and returns the proxy handle
// (spec.md §6.3).
func (c *Context) ImportFromHandle(h HandleToExchange) ProxyHandle {
	return c.importProxy(h.ID)
}

// ClearServiceRegistry drops every registered object without sending
// delete traffic.
func (c *Context) ClearServiceRegistry() { c.forwarder.clear() }

// DisableGarbageCollection suppresses delete requests sent when a proxy
// handle is closed; intended for shutdown paths where the peer is already
// gone (spec.md §4.9).
func (c *Context) DisableGarbageCollection() { atomic.StoreInt32(&c.gcDisabledFlag, 1) }

func (c *Context) gcDisabled() bool { return atomic.LoadInt32(&c.gcDisabledFlag) == 1 }

// FirmClose performs the symmetric rendezvous-based teardown protocol:
// both peers must call it before either call returns successfully
// (spec.md §4.9). A zero timeout waits indefinitely.
func (c *Context) FirmClose(timeout time.Duration) error {
	return firmClose(c, timeout)
}

// RegistrySize reports the number of live registrations; used by tests to
// observe that dropping a proxy deleted its backing object.
func (c *Context) RegistrySize() int { return c.forwarder.size() }

// WithPort returns ctx carrying this Context as the active serde port, for
// use at call sites outside of an incoming dispatch: a top-level proxy call
// that exports or imports an object as an argument or return value needs
// the port on ctx exactly as an incoming Forwarder.dispatch call already
// provides it (port.go's withPort/portFromContext).
func (c *Context) WithPort(ctx context.Context) context.Context {
	return withPort(ctx, c)
}

// --- port implementation -------------------------------------------------

func (c *Context) registerSkeleton(s Skeleton) (ObjectId, error) {
	return c.forwarder.register(s)
}

func (c *Context) importProxy(id ObjectId) ProxyHandle {
	return newProxyHandle(c, id)
}

func (c *Context) call(ctx context.Context, object ObjectId, method uint32, payload []byte) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrContextClosed
	}
	return c.client.call(object, method, payload)
}

func (c *Context) sendDelete(object ObjectId) {
	if c.isClosed() {
		return
	}
	_, err := c.client.call(object, MethodIdDelete, nil)
	if err != nil && !c.gcDisabled() {
		c.log.WithError(err).WithField("object", object).Warn("rto: delete request failed")
	}
}

func (c *Context) codec() Codec { return c.wireCodec }

func (c *Context) gcEnabled() bool { return !c.gcDisabled() }

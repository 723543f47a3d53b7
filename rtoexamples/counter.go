package rtoexamples

import (
	"context"
	"sync"

	"github.com/go-rto/rto"
	"golang.org/x/xerrors"
)

// Counter is scenario 2's returned object: inc() needs &mut self, so the
// implementation below guards its state with its own mutex rather than
// assuming exclusive ownership (spec.md §4.6's shared-mutable-with-lock
// form); CounterSkeleton itself adds no locking.
type Counter interface {
	Inc()
	Get() int32
}

// counterImpl is a Counter with its own internal locking; Factory.Make
// constructs one per call.
type counterImpl struct {
	mu sync.Mutex
	n  int32
}

// NewCounter constructs a fresh, independently-locked Counter.
func NewCounter() Counter { return &counterImpl{} }

func (c *counterImpl) Inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counterImpl) Get() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

var (
	methodCounterInc uint32 = 0
	methodCounterGet uint32 = 1
)

func init() {
	rto.RegisterMethodID("Counter", "Inc", func(id uint32) { methodCounterInc = id })
	rto.RegisterMethodID("Counter", "Get", func(id uint32) { methodCounterGet = id })
}

// CounterSkeleton adapts a Counter implementation to rto.Dispatcher.
type CounterSkeleton struct {
	Impl Counter
}

// NewCounterSkeleton wraps impl for registration.
func NewCounterSkeleton(impl Counter) rto.Skeleton {
	return rto.NewSkeleton("Counter", CounterSkeleton{Impl: impl})
}

func (s CounterSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	codec := rto.CodecFromContext(ctx)
	switch methodID {
	case methodCounterInc:
		s.Impl.Inc()
		return nil, nil
	case methodCounterGet:
		return codec.Marshal(s.Impl.Get())
	default:
		return nil, xerrors.Errorf("rtoexamples: Counter: unknown method %d", methodID)
	}
}

// CounterProxy pairs a ProxyHandle with the Counter call signature.
type CounterProxy struct {
	rto.ProxyHandle
}

// NewCounterProxy wraps h as a Counter proxy.
func NewCounterProxy(h rto.ProxyHandle) CounterProxy { return CounterProxy{h} }

func (p CounterProxy) Inc(ctx context.Context) error {
	return p.Call(ctx, "Counter", "Inc", methodCounterInc, struct{}{}, nil)
}

func (p CounterProxy) Get(ctx context.Context) (int32, error) {
	var result int32
	err := p.Call(ctx, "Counter", "Get", methodCounterGet, struct{}{}, &result)
	return result, err
}

// Factory is scenario 2: factory.make() -> Counter returns a freshly
// exported object rather than a plain value.
type Factory interface {
	Make() Counter
}

var methodFactoryMake uint32 = 0

func init() {
	rto.RegisterMethodID("Factory", "Make", func(id uint32) { methodFactoryMake = id })
}

// FactorySkeleton adapts a Factory implementation to rto.Dispatcher.
type FactorySkeleton struct {
	Impl Factory
}

// NewFactorySkeleton wraps impl for registration.
func NewFactorySkeleton(impl Factory) rto.Skeleton {
	return rto.NewSkeleton("Factory", FactorySkeleton{Impl: impl})
}

func (s FactorySkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	switch methodID {
	case methodFactoryMake:
		counter := s.Impl.Make()
		handle, err := rto.ExportFromContext(ctx, NewCounterSkeleton(counter))
		if err != nil {
			return nil, err
		}
		return rto.CodecFromContext(ctx).Marshal(handle)
	default:
		return nil, xerrors.Errorf("rtoexamples: Factory: unknown method %d", methodID)
	}
}

// FactoryProxy pairs a ProxyHandle with the Factory call signature.
type FactoryProxy struct {
	rto.ProxyHandle
}

// NewFactoryProxy wraps h as a Factory proxy.
func NewFactoryProxy(h rto.ProxyHandle) FactoryProxy { return FactoryProxy{h} }

func (p FactoryProxy) Make(ctx context.Context) (CounterProxy, error) {
	var handle rto.HandleToExchange
	if err := p.Call(ctx, "Factory", "Make", methodFactoryMake, struct{}{}, &handle); err != nil {
		return CounterProxy{}, err
	}
	return NewCounterProxy(rto.ImportFromContext(ctx, handle)), nil
}

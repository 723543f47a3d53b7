package rto

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// HandleToExchange is the wire-serializable form of an object reference: a
// bare ObjectId, meaningful only on the peer that imports it (spec.md's
// "Handle-to-exchange").
type HandleToExchange struct {
	ID ObjectId `json:"id"`
}

// ExportFromContext registers skeleton with the port carried by ctx and
// returns the resulting handle. Generated proxy/skeleton code calls this
// wherever an interface method embeds a ServiceToExport argument or return
// value, in place of spec.md's thread-local "serialize a ServiceToExport"
// hook (see SPEC_FULL.md §4.7/4.8 for why: Go threads the port through ctx
// explicitly instead of an ambient thread-local stack).
func ExportFromContext(ctx context.Context, skeleton Skeleton) (HandleToExchange, error) {
	p := portFromContext(ctx)
	if p == nil {
		return HandleToExchange{}, xerrors.Errorf("rto: ExportFromContext called outside of an active call")
	}
	id, err := p.registerSkeleton(skeleton)
	if err != nil {
		return HandleToExchange{}, err
	}
	return HandleToExchange{ID: id}, nil
}

// ImportFromContext builds a ProxyHandle for h bound to the port carried by
// ctx. Generated proxy code calls this wherever an interface method embeds
// a ServiceToImport argument or return value.
func ImportFromContext(ctx context.Context, h HandleToExchange) ProxyHandle {
	p := portFromContext(ctx)
	if p == nil || h.ID.IsNull() {
		return NullProxyHandle()
	}
	return p.importProxy(h.ID)
}

// ServiceToExport wraps a skeleton to be exported (spec.md §4.7). It is not
// marshaled itself: ToHandle registers it and returns the HandleToExchange
// that goes on the wire. Its registration is cached
// so that a codec performing more than one encoding pass over the same
// value produces the same ObjectId both times.
type ServiceToExport[T any] struct {
	mu       sync.Mutex
	skeleton Skeleton
	cached   *ObjectId
}

// NewServiceToExport wraps skeleton for export. T documents the interface
// the skeleton implements; it carries no runtime behavior since Go's type
// system cannot recover it from Dispatcher alone.
func NewServiceToExport[T any](skeleton Skeleton) ServiceToExport[T] {
	return ServiceToExport[T]{skeleton: skeleton}
}

// ToHandle registers (once) the wrapped skeleton with the port carried by
// ctx and returns the handle. Safe to call more than once; later calls
// return the cached id.
func (e *ServiceToExport[T]) ToHandle(ctx context.Context) (HandleToExchange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached != nil {
		return HandleToExchange{ID: *e.cached}, nil
	}
	h, err := ExportFromContext(ctx, e.skeleton)
	if err != nil {
		return HandleToExchange{}, err
	}
	e.cached = &h.ID
	return h, nil
}

// ServiceToImport wraps a HandleToExchange that generated code has read off
// the wire; conversion into a live proxy is deferred to generated code,
// which knows the concrete proxy type implementing T.
type ServiceToImport[T any] struct {
	Handle HandleToExchange
}

// NewServiceToImport wraps a handle read off the wire.
func NewServiceToImport[T any](h HandleToExchange) ServiceToImport[T] {
	return ServiceToImport[T]{Handle: h}
}

// ProxyHandle builds a ProxyHandle for the wrapped handle, bound to the
// port carried by ctx.
func (i ServiceToImport[T]) ProxyHandle(ctx context.Context) ProxyHandle {
	return ImportFromContext(ctx, i.Handle)
}

// ServiceRef is the tagged union spec.md §4.7 describes so that the same
// interface can be used in both call directions: exactly one of Export /
// Import is set.
type ServiceRef[T any] struct {
	Export *ServiceToExport[T]
	Import *ServiceToImport[T]
}

// RefExport wraps skeleton as an outgoing ServiceRef.
func RefExport[T any](skeleton Skeleton) ServiceRef[T] {
	e := NewServiceToExport[T](skeleton)
	return ServiceRef[T]{Export: &e}
}

// RefImport wraps a handle as an incoming ServiceRef.
func RefImport[T any](h HandleToExchange) ServiceRef[T] {
	i := NewServiceToImport[T](h)
	return ServiceRef[T]{Import: &i}
}

// ToHandle resolves either branch of the union to a wire handle.
func (r *ServiceRef[T]) ToHandle(ctx context.Context) (HandleToExchange, error) {
	if r.Export != nil {
		return r.Export.ToHandle(ctx)
	}
	if r.Import != nil {
		return r.Import.Handle, nil
	}
	return HandleToExchange{ID: ObjectIdNull}, nil
}

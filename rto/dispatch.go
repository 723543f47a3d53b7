package rto

import (
	"context"

	"golang.org/x/xerrors"
)

// Dispatcher is the one operation a registered object must expose: decode
// the argument tuple, invoke the real method, encode the result. Its
// internals are interface-specific and generated (spec.md §3); the core
// only ever holds this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error)
}

// Skeleton is an owning wrapper around a Dispatcher. Go's garbage collector
// already reference-counts the underlying object for us (unlike the
// Arc<dyn Dispatch> the originating design needs), so Skeleton itself holds
// a plain Dispatcher value; Clone merely produces a second registrable
// handle to the same dispatcher, matching spec.md's "a Skeleton may be
// cloned, producing multiple registrations of the same underlying object".
type Skeleton struct {
	d    Dispatcher
	name string // interface name, for diagnostics and null-proxy panics
}

// NewSkeleton wraps a Dispatcher for registration. name is the interface
// name used in diagnostics; it has no wire representation.
func NewSkeleton(name string, d Dispatcher) Skeleton {
	return Skeleton{d: d, name: name}
}

// Clone returns a second Skeleton wrapping the same Dispatcher. Registering
// both yields two independent ObjectIds that dispatch to the same object.
func (s Skeleton) Clone() Skeleton { return s }

func (s Skeleton) dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	if s.d == nil {
		return nil, xerrors.Errorf("rto: dispatch on empty skeleton")
	}
	return s.d.Dispatch(ctx, methodID, payload)
}

// MethodEntry is one row of the process-global, append-only method-id table
// spec.md §4.6 requires: (interface_name, method_name, setter). A future
// macro front-end registers one entry per generated method at init time;
// SetupIdentifiers then fans a caller-supplied id map out through every
// registered setter.
type MethodEntry struct {
	Interface string
	Method    string
	set       func(uint32)
}

var methodTable []MethodEntry

// RegisterMethodID appends one row to the process-global method-id table.
// Generated proxy/skeleton code calls this once per method at package init
// time, passing a closure that overwrites its own compile-time-default id
// variable.
func RegisterMethodID(interfaceName, methodName string, set func(uint32)) {
	methodTable = append(methodTable, MethodEntry{Interface: interfaceName, Method: methodName, set: set})
}

// SetupIdentifiers rewrites every registered method id from its
// compile-time default to the value named in ids, keyed by
// "Interface.Method". It is intended to be called at most once, before any
// Context is constructed; identifier tables must be identical on both
// peers of a connection or behavior is undefined (spec.md §4.6).
func SetupIdentifiers(ids map[string]uint32) {
	for _, entry := range methodTable {
		if v, ok := ids[entry.Interface+"."+entry.Method]; ok {
			entry.set(v)
		}
	}
}

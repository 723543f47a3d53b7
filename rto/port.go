package rto

import (
	"context"

	"golang.org/x/xerrors"
)

// port is the interior surface the serde bridge and generated proxy/skeleton
// code talk to. *Context implements it. Splitting it out avoids the
// Context/Forwarder reference cycle spec.md §9 calls out: the Forwarder only
// ever sees this narrow interface, set once after the owning Context
// finishes constructing itself.
type port interface {
	registerSkeleton(s Skeleton) (ObjectId, error)
	importProxy(id ObjectId) ProxyHandle
	call(ctx context.Context, object ObjectId, method uint32, payload []byte) ([]byte, error)
	sendDelete(object ObjectId)
	codec() Codec
	gcEnabled() bool
}

// Codec is re-exported here (rather than requiring every caller to import
// rto/codec) so that generated dispatch/proxy code only needs to import
// this package.
type Codec = portCodec

type portCodec interface {
	Marshal(value interface{}) ([]byte, error)
	Unmarshal(data []byte, out interface{}) error
}

// portKey is the context.Context key the active port and serde-nesting
// depth are carried under. spec.md §4.8 describes a thread-local port
// stack as the "minimum viable" mechanism and explicitly names a
// serializer-wrapper as the cleaner alternative; Go has no ambient
// thread-local storage, so this package takes that alternative: the
// active port rides explicitly on the context.Context that every
// ProxyHandle.Call/Forwarder.dispatch call already carries.
type portKey struct{}

type portFrame struct {
	p     port
	depth int
}

// maxPortDepth mirrors spec.md's "methods may embed objects but cannot nest
// the serde pass further than one level" bound.
const maxPortDepth = 1

// withPort pushes p onto the ambient port "stack" carried by ctx. It panics
// if the bound would be exceeded, the same assertion spec.md §4.8 requires.
func withPort(ctx context.Context, p port) context.Context {
	depth := 0
	if fr, ok := ctx.Value(portKey{}).(portFrame); ok {
		depth = fr.depth + 1
		if depth > maxPortDepth {
			panic(xerrors.Errorf("rto: serde port stack exceeded depth %d", maxPortDepth))
		}
	}
	return context.WithValue(ctx, portKey{}, portFrame{p: p, depth: depth})
}

// portFromContext retrieves the active port, or nil if none was pushed
// (e.g. the value is being serialized outside of a call).
func portFromContext(ctx context.Context) port {
	fr, _ := ctx.Value(portKey{}).(portFrame)
	return fr.p
}

// CodecFromContext returns the Codec of the port carried by ctx, or nil if
// ctx carries none. Generated dispatch/proxy code uses this to
// marshal/unmarshal plain argument and result values with the same Codec
// ProxyHandle.Call uses, without needing its own reference to the Context.
func CodecFromContext(ctx context.Context) Codec {
	p := portFromContext(ctx)
	if p == nil {
		return nil
	}
	return p.codec()
}

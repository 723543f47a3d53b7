package rto

import (
	"context"
	"sync/atomic"
)

// ProxyHandle is the concrete struct every generated proxy type embeds. It
// pairs an ObjectId with a back-reference to the owning Context's port
// (spec.md's "Proxy handle"). Dropping a proxy handle sends a delete
// request for its id unless garbage collection has been disabled on the
// port; dropping is idempotent. closed is an atomic flag rather than a
// mutex-guarded bool so that ProxyHandle, and every generated proxy type
// embedding it, stays copyable by value (handed out and returned by value
// throughout, e.g. Context.ImportFromHandle and Factory.Make).
type ProxyHandle struct {
	id     ObjectId
	p      port
	closed int32
}

// newProxyHandle constructs a handle bound to id on the Context behind p.
// Context.importProxy calls it; Context.ImportFromHandle,
// ImportFromContext and ServiceToImport.ProxyHandle all reach it that way.
func newProxyHandle(p port, id ObjectId) ProxyHandle {
	return ProxyHandle{p: p, id: id}
}

// NullProxyHandle returns a handle that panics on any Call and is a no-op
// to Close, letting a proxy-typed field be lazily initialized without an
// Option (spec.md §4.10 "Null proxy").
func NullProxyHandle() ProxyHandle {
	return ProxyHandle{id: ObjectIdNull}
}

// ID returns the handle's ObjectId.
func (h *ProxyHandle) ID() ObjectId { return h.id }

// IsNull reports whether this is the null proxy.
func (h *ProxyHandle) IsNull() bool { return h.id.IsNull() }

// Call performs one remote method invocation: encode the argument tuple
// args with the port's Codec, send it, decode the reply into result. interfaceName/method are used only for the
// null-proxy panic message.
func (h *ProxyHandle) Call(ctx context.Context, interfaceName, method string, methodID uint32, args interface{}, result interface{}) error {
	if h.id.IsNull() {
		panicOnNullProxy(interfaceName, method)
	}
	cd := h.p.codec()
	payload, err := cd.Marshal(args)
	if err != nil {
		return err
	}
	reply, err := h.p.call(ctx, h.id, methodID, payload)
	if err != nil {
		return err
	}
	if result == nil || len(reply) == 0 {
		return nil
	}
	return cd.Unmarshal(reply, result)
}

// Close sends a delete request for this proxy's object id unless garbage
// collection is disabled or this is the null proxy. It is idempotent on
// this handle: concurrent or repeated Close calls on the *same* ProxyHandle
// value send at most one delete. A copy of an already-returned proxy (a
// separate ProxyHandle value over the same id) carries its own flag, same
// as dropping two independent references in any refcounted scheme; the
// resulting extra delete request is harmless (Forwarder.delete is a
// no-op on an already-removed id).
func (h *ProxyHandle) Close() {
	if !atomic.CompareAndSwapInt32(&h.closed, 0, 1) {
		return
	}
	if h.id.IsNull() || h.p == nil {
		return
	}
	if h.p.gcEnabled() {
		h.p.sendDelete(h.id)
	}
}

package rto

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// forwarder is the object registry: id -> Skeleton, a free-id pool, and a
// back-reference to the owning Context's port (needed by dispatchers
// that produce or consume embedded objects during serde). Grounded on
// zombiezen.com/go/capnproto2's rpc.answer table idiom: a mutex-guarded
// map, with entries cloned out from under the lock before the actual
// (possibly reentrant, possibly blocking) dispatch happens.
type forwarder struct {
	mu      sync.RWMutex
	entries map[ObjectId]Skeleton
	free    chan ObjectId

	p port // set once, after the owning Context finishes constructing itself
}

func newForwarder(maxServices int) *forwarder {
	if maxServices <= 0 {
		maxServices = 1 << 20
	}
	free := make(chan ObjectId, maxServices)
	for id := firstDynamicObjectId; uint64(id) < uint64(firstDynamicObjectId)+uint64(maxServices); id++ {
		free <- id
	}
	return &forwarder{
		entries: make(map[ObjectId]Skeleton),
		free:    free,
	}
}

// bindPort installs the back-reference to the owning Context. Called once
// by Context's constructor after both the Context and the Forwarder exist,
// resolving the cyclic reference spec.md §9 names.
func (f *forwarder) bindPort(p port) { f.p = p }

// register pops a free id and installs skeleton at it.
func (f *forwarder) register(skeleton Skeleton) (ObjectId, error) {
	select {
	case id := <-f.free:
		f.mu.Lock()
		f.entries[id] = skeleton
		f.mu.Unlock()
		return id, nil
	default:
		return 0, xerrors.Errorf("rto: %w", ErrRegistryExhausted)
	}
}

// registerAt installs skeleton at a fixed id (used for META and, when
// configured, INITIAL), bypassing the free-id pool entirely.
func (f *forwarder) registerAt(id ObjectId, skeleton Skeleton) {
	f.mu.Lock()
	f.entries[id] = skeleton
	f.mu.Unlock()
}

// dispatch routes one request to its target object. method_id ==
// MethodIdDelete removes the entry instead of invoking it; this is the
// only path by which skeletons are destroyed during normal operation
// (spec.md §4.5).
func (f *forwarder) dispatch(ctx context.Context, object ObjectId, methodID uint32, payload []byte) ([]byte, error) {
	if methodID == MethodIdDelete {
		f.delete(object)
		return nil, nil
	}

	f.mu.RLock()
	skeleton, ok := f.entries[object]
	f.mu.RUnlock()
	if !ok {
		return nil, xerrors.Errorf("rto: dispatch to unknown object %d", object)
	}

	// The registry lock is not held across the call: dispatchers may
	// re-enter the registry (exporting a new object mid-call) and may
	// block on I/O. The port is pushed onto ctx so embedded
	// ServiceToExport/ServiceToImport values reach the right Context
	// during argument decode / return-value encode.
	callCtx := withPort(ctx, f.p)
	return skeleton.dispatch(callCtx, methodID, payload)
}

func (f *forwarder) delete(id ObjectId) {
	f.mu.Lock()
	_, existed := f.entries[id]
	delete(f.entries, id)
	f.mu.Unlock()
	if existed && id >= firstDynamicObjectId {
		select {
		case f.free <- id:
		default:
		}
	}
}

// size reports the number of live registrations, used by tests to observe
// that a proxy drop deleted its backing object (spec.md §8 scenario 5).
func (f *forwarder) size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// clear drops every entry without sending delete traffic; used during
// Context teardown and by the explicit ClearServiceRegistry knob.
func (f *forwarder) clear() {
	f.mu.Lock()
	f.entries = make(map[ObjectId]Skeleton)
	f.mu.Unlock()
}

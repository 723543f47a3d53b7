package rto

import (
	"golang.org/x/xerrors"
)

// Sentinel errors surfaced to callers. Use errors.Is to test for these;
// xerrors.Errorf wrapping elsewhere preserves the chain.
var (
	// ErrTransportTimeout means a slot could not be acquired, a send did
	// not complete, or a response did not arrive within call_timeout.
	ErrTransportTimeout = xerrors.New("rto: transport timeout")

	// ErrTransportTerminated means the connection is gone; the Context
	// that returned this is no longer usable.
	ErrTransportTerminated = xerrors.New("rto: transport terminated")

	// ErrRegistryExhausted means the registry has no free object id left
	// to hand out. Fatal for the register call that triggered it, not for
	// the Context.
	ErrRegistryExhausted = xerrors.New("rto: registry exhausted")

	// ErrContextClosed is returned by operations attempted after the
	// Context has entered Draining or Closed. It wraps
	// ErrTransportTerminated, so errors.Is reports it as that kind too.
	ErrContextClosed = xerrors.Errorf("rto: context closed: %w", ErrTransportTerminated)

	// ErrFirmCloseTimeout means firm_close's rendezvous did not complete
	// before its deadline.
	ErrFirmCloseTimeout = xerrors.New("rto: firm close timed out")
)

// TransportError wraps an opaque error returned by a Transport
// implementation for anything other than Timeout/Terminated.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return xerrors.Errorf("rto: transport error: %w", e.Err).Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// callOnNullProxy is the panic value raised when a method is invoked on a
// null proxy. It is a programmer error, per spec, not a recoverable error.
type callOnNullProxy struct {
	interfaceName, method string
}

func (p callOnNullProxy) String() string {
	return xerrors.Errorf("rto: call on null proxy %s.%s", p.interfaceName, p.method).Error()
}

func panicOnNullProxy(interfaceName, method string) {
	panic(callOnNullProxy{interfaceName: interfaceName, method: method})
}

package rto

import (
	"time"

	"golang.org/x/xerrors"
)

// TransportSend is the send half of a full-duplex transport. Implementations
// are the external, untrusted-only-in-errors collaborator spec.md §4.1
// describes: the core tolerates Timeout and Terminated as non-bugs and
// surfaces every other error verbatim via TransportError.
type TransportSend interface {
	// Send delivers bytes to the peer. A zero timeout means wait
	// indefinitely.
	Send(bytes []byte, timeout time.Duration) error

	// CreateTerminator returns a Terminator that, when fired, causes any
	// in-progress or future Send on this half to return
	// ErrTransportTerminated.
	CreateTerminator() Terminator
}

// TransportRecv is the receive half of a full-duplex transport.
type TransportRecv interface {
	// Recv blocks for the next packet. A zero timeout means wait
	// indefinitely.
	Recv(timeout time.Duration) ([]byte, error)

	// CreateTerminator returns a Terminator that, when fired, causes any
	// in-progress or future Recv on this half to return
	// ErrTransportTerminated.
	CreateTerminator() Terminator
}

// Terminator aborts a blocked Send or Recv on the half it was created from.
// Terminate may be called from any goroutine and must be safe to call more
// than once.
type Terminator interface {
	Terminate()
}

// Transport is the pair of halves a Context is constructed with. The
// concrete transport (pipes, sockets, in-process channels) is deliberately
// out of scope of this package; only this contract is consumed.
type Transport struct {
	Send TransportSend
	Recv TransportRecv
}

// wrapTransportErr classifies an error returned by a Transport method into
// one of the three kinds spec.md §7 names.
func wrapTransportErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case xerrors.Is(err, ErrTransportTimeout):
		return ErrTransportTimeout
	case xerrors.Is(err, ErrTransportTerminated):
		return ErrTransportTerminated
	default:
		return &TransportError{Err: err}
	}
}

package main

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-rto/rto"
)

// tcpTransport frames rto packets over a byte-stream net.Conn with a 4-byte
// big-endian length prefix: unlike rtotest's in-process pipe, TCP carries
// no message boundaries of its own, so each Send's already-encoded packet
// bytes are prefixed with their own length for Recv to split back out.
type tcpTransport struct {
	conn net.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newTCPTransport(conn net.Conn) rto.Transport {
	t := &tcpTransport{conn: conn, closed: make(chan struct{})}
	return rto.Transport{Send: t, Recv: t}
}

func (t *tcpTransport) Send(data []byte, timeout time.Duration) error {
	select {
	case <-t.closed:
		return rto.ErrTransportTerminated
	default:
	}
	if timeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer t.conn.SetWriteDeadline(time.Time{})
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := t.conn.Write(prefix[:]); err != nil {
		return classifyNetErr(err)
	}
	if _, err := t.conn.Write(data); err != nil {
		return classifyNetErr(err)
	}
	return nil
}

func (t *tcpTransport) Recv(timeout time.Duration) ([]byte, error) {
	select {
	case <-t.closed:
		return nil, rto.ErrTransportTerminated
	default:
	}
	if timeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(timeout))
		defer t.conn.SetReadDeadline(time.Time{})
	}

	var prefix [4]byte
	if _, err := io.ReadFull(t.conn, prefix[:]); err != nil {
		return nil, classifyNetErr(err)
	}
	buf := make([]byte, binary.BigEndian.Uint32(prefix[:]))
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, classifyNetErr(err)
	}
	return buf, nil
}

// CreateTerminator satisfies both TransportSend and TransportRecv; closing
// the one connection terminates both halves at once.
func (t *tcpTransport) CreateTerminator() rto.Terminator { return t }

func (t *tcpTransport) Terminate() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.conn.Close()
	})
}

func classifyNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return rto.ErrTransportTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return rto.ErrTransportTerminated
	}
	return err
}

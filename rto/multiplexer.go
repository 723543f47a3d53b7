package rto

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// multiplexer owns the receive half of the transport and de-interleaves
// inbound packets into request and response streams by the high bit of the
// slot field, grounded on jsonrpc2.Conn.Run's single reader loop. Unlike
// that loop, this one never dispatches or delivers a response itself: it
// only classifies and forwards onto two channels of 64 packets each. A
// slow Server dispatch stalls the read loop only once the request channel
// is full; the read loop then blocks until the Server takes a packet.
type multiplexer struct {
	recv TransportRecv
	log  *logrus.Entry

	requests  chan Packet
	responses chan Packet

	closeOnce sync.Once
	closed    chan struct{}
	err       error
	errMu     sync.Mutex
}

func newMultiplexer(recv TransportRecv, log *logrus.Entry) *multiplexer {
	return &multiplexer{
		recv:      recv,
		log:       log,
		requests:  make(chan Packet, 64),
		responses: make(chan Packet, 64),
		closed:    make(chan struct{}),
	}
}

// run is the dedicated receiver task. It blocks on transport recv until
// Terminated or another transport error, at which point it records the
// error (see lastErr) and closes both channels, so each consumer sees its
// channel close once and the multiplexer is drained.
func (m *multiplexer) run() {
	defer close(m.requests)
	defer close(m.responses)
	defer close(m.closed)
	for {
		raw, err := m.recv.Recv(0)
		if err != nil {
			m.errMu.Lock()
			m.err = wrapTransportErr(err)
			m.errMu.Unlock()
			return
		}
		pkt, err := decodePacket(raw)
		if err != nil {
			m.log.WithError(err).Warn("rto: dropping malformed packet")
			continue
		}
		if pkt.IsRequest() {
			m.requests <- pkt
		} else {
			m.responses <- pkt
		}
	}
}

func (m *multiplexer) lastErr() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

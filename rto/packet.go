package rto

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// headerSize is the fixed 12-byte packet header: slot, object_id, method_id,
// each a little-endian uint32 (spec.md §6.4).
const headerSize = 12

// requestBit is the high bit of the slot field; set on requests, clear on
// responses. The same numeric slot value is used in both directions.
const requestBit uint32 = 1 << 31

// Packet is one message on the wire: a 12-byte header followed by an
// opaque, codec-produced payload.
type Packet struct {
	Slot     uint32
	Object   ObjectId
	Method   uint32
	Payload  []byte
}

// IsRequest reports whether the high bit of Slot is set.
func (p Packet) IsRequest() bool { return p.Slot&requestBit != 0 }

// SlotID returns Slot with the request bit cleared.
func (p Packet) SlotID() uint32 { return p.Slot &^ requestBit }

// encode writes the packet into a single contiguous byte slice: header then
// payload, mirroring jsonrpc2_v2's Reader/Writer split between framing and
// message body, adapted to a fixed binary header instead of textual
// Content-Length framing.
func (p Packet) encode() []byte {
	buf := make([]byte, headerSize+len(p.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], p.Slot)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.Object))
	binary.LittleEndian.PutUint32(buf[8:12], p.Method)
	copy(buf[headerSize:], p.Payload)
	return buf
}

// decodePacket splits a raw transport message into its header fields and
// payload.
func decodePacket(raw []byte) (Packet, error) {
	if len(raw) < headerSize {
		return Packet{}, xerrors.Errorf("rto: packet too short (%d bytes, need %d)", len(raw), headerSize)
	}
	p := Packet{
		Slot:   binary.LittleEndian.Uint32(raw[0:4]),
		Object: ObjectId(binary.LittleEndian.Uint32(raw[4:8])),
		Method: binary.LittleEndian.Uint32(raw[8:12]),
	}
	if len(raw) > headerSize {
		p.Payload = append([]byte(nil), raw[headerSize:]...)
	}
	return p, nil
}

// requestPacket builds a request packet view; the slot field still needs the
// request bit and the acquired slot id filled in by the Client.
func requestPacket(object ObjectId, method uint32, payload []byte) Packet {
	return Packet{Object: object, Method: method, Payload: payload}
}

// responsePacket builds the response packet echoing a request's slot (bit
// cleared), object id and method id, per spec.md's packet invariants.
func responsePacket(req Packet, payload []byte) Packet {
	return Packet{
		Slot:    req.SlotID(),
		Object:  req.Object,
		Method:  req.Method,
		Payload: payload,
	}
}

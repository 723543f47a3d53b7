package rto

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"request", requestPacket(ObjectId(7), 3, []byte(`{"a":1}`))},
		{"empty payload", requestPacket(ObjectId(0), 0, nil)},
		{"response", responsePacket(Packet{Slot: 5 | requestBit, Object: 9, Method: 2}, []byte("ok"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.pkt.encode()
			got, err := decodePacket(raw)
			if err != nil {
				t.Fatalf("decodePacket: %v", err)
			}
			if diff := cmp.Diff(tt.pkt, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPacketIsRequest(t *testing.T) {
	req := requestPacket(1, 1, nil)
	req.Slot = 4 | requestBit
	if !req.IsRequest() {
		t.Fatal("IsRequest() = false for a request-bit slot")
	}
	if req.SlotID() != 4 {
		t.Fatalf("SlotID() = %d, want 4", req.SlotID())
	}

	resp := responsePacket(req, nil)
	if resp.IsRequest() {
		t.Fatal("IsRequest() = true for a response packet")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := decodePacket([]byte{0, 1, 2}); err == nil {
		t.Fatal("decodePacket on a short buffer succeeded, want an error")
	}
}

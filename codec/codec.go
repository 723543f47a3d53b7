// Package codec defines the SerdeFormat contract the rto core consumes
// (spec.md §6.2) and a default self-describing implementation.
//
// The concrete wire serialization format is deliberately out of scope of
// the core itself; rto.Context is constructed with a Codec and never
// imports encoding/json directly outside of this package's default.
package codec

// Codec turns values into wire bytes and back. Implementations must be
// self-describing: Unmarshal does not need prior knowledge of the type
// beyond the Go type of the destination pointer.
type Codec interface {
	Marshal(value interface{}) ([]byte, error)
	Unmarshal(data []byte, out interface{}) error
}

package codec

import "encoding/json"

// JSON is the default Codec. It is grounded directly on the teacher
// package's own wire format: internal/jsonrpc2's wireRequest/wireResponse
// types are plain encoding/json structs carrying json.RawMessage payloads;
// this codec renders the same choice as a standalone, reusable Codec.
type JSON struct{}

func (JSON) Marshal(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func (JSON) Unmarshal(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// Default is the package-level JSON codec instance, used when a Context is
// constructed without an explicit Codec.
var Default Codec = JSON{}

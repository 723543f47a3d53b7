// Package rtoexamples stands in for a macro-generated per-interface layer:
// one Skeleton adapter and one Proxy type per interface from spec.md §8's
// concrete scenarios, hand-written the way golang-tools/gopls's
// internal/lsp/protocol/tsserver.go hand-writes its serverDispatch
// switch/serverDispatcher pair instead of generating them.
package rtoexamples

import (
	"context"

	"github.com/go-rto/rto"
	"golang.org/x/xerrors"
)

// Adder is scenario 1: export an object implementing add(a, b) -> sum, call
// it from the peer.
type Adder interface {
	Add(a, b int32) int32
}

var methodAdderAdd uint32 = 0

func init() {
	rto.RegisterMethodID("Adder", "Add", func(id uint32) { methodAdderAdd = id })
}

// AdderSkeleton adapts an Adder implementation to rto.Dispatcher.
type AdderSkeleton struct {
	Impl Adder
}

// NewAdderSkeleton wraps impl for registration.
func NewAdderSkeleton(impl Adder) rto.Skeleton {
	return rto.NewSkeleton("Adder", AdderSkeleton{Impl: impl})
}

type adderAddArgs struct {
	A int32 `json:"a"`
	B int32 `json:"b"`
}

func (s AdderSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	codec := rto.CodecFromContext(ctx)
	switch methodID {
	case methodAdderAdd:
		var args adderAddArgs
		if err := codec.Unmarshal(payload, &args); err != nil {
			return nil, err
		}
		return codec.Marshal(s.Impl.Add(args.A, args.B))
	default:
		return nil, xerrors.Errorf("rtoexamples: Adder: unknown method %d", methodID)
	}
}

// AdderProxy pairs a ProxyHandle with the Adder call signature.
type AdderProxy struct {
	rto.ProxyHandle
}

// NewAdderProxy wraps h as an Adder proxy.
func NewAdderProxy(h rto.ProxyHandle) AdderProxy { return AdderProxy{h} }

func (p AdderProxy) Add(ctx context.Context, a, b int32) (int32, error) {
	var result int32
	err := p.Call(ctx, "Adder", "Add", methodAdderAdd, adderAddArgs{A: a, B: b}, &result)
	return result, err
}

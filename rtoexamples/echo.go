package rtoexamples

import (
	"context"

	"github.com/go-rto/rto"
	"golang.org/x/xerrors"
)

// EchoSkeleton backs the round-trip property in spec.md §8: for any value v
// of a supported type, proxy.echo(v) == v. Its Dispatch never decodes the
// payload at all; it passes the already-encoded bytes straight back, which
// is what lets Echo below stay generic over any codec-marshalable type.
type EchoSkeleton struct{}

// NewEchoSkeleton builds the Echo skeleton; it carries no state.
func NewEchoSkeleton() rto.Skeleton { return rto.NewSkeleton("Echo", EchoSkeleton{}) }

var methodEchoEcho uint32 = 0

func init() {
	rto.RegisterMethodID("Echo", "Echo", func(id uint32) { methodEchoEcho = id })
}

func (EchoSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	switch methodID {
	case methodEchoEcho:
		return payload, nil
	default:
		return nil, xerrors.Errorf("rtoexamples: Echo: unknown method %d", methodID)
	}
}

// EchoProxy pairs a ProxyHandle with the Echo object.
type EchoProxy struct {
	rto.ProxyHandle
}

// NewEchoProxy wraps h as an Echo proxy.
func NewEchoProxy(h rto.ProxyHandle) EchoProxy { return EchoProxy{h} }

// Echo sends value and decodes the reply back into the same type,
// generic over T so a single proxy serves every supported value type.
func Echo[T any](ctx context.Context, p EchoProxy, value T) (T, error) {
	var result T
	err := p.Call(ctx, "Echo", "Echo", methodEchoEcho, value, &result)
	return result, err
}

package rto

import (
	"context"
	"testing"
)

type echoDispatcher struct{}

func (echoDispatcher) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	return payload, nil
}

func TestSetupIdentifiers(t *testing.T) {
	var gotID uint32 = 1234 // compile-time default, overwritten below
	RegisterMethodID("TestIface", "DoThing", func(id uint32) { gotID = id })

	SetupIdentifiers(map[string]uint32{"TestIface.DoThing": 42})
	if gotID != 42 {
		t.Fatalf("method id after SetupIdentifiers = %d, want 42", gotID)
	}

	// An id map missing the entry leaves the previous value untouched.
	SetupIdentifiers(map[string]uint32{"Other.Method": 7})
	if gotID != 42 {
		t.Fatalf("method id changed by an unrelated SetupIdentifiers call: got %d, want 42", gotID)
	}
}

func TestSkeletonDispatchOnEmptySkeleton(t *testing.T) {
	var s Skeleton
	if _, err := s.dispatch(context.Background(), 0, nil); err == nil {
		t.Fatal("dispatch on an empty Skeleton succeeded, want an error")
	}
}

func TestSkeletonClone(t *testing.T) {
	s := NewSkeleton("Echo", echoDispatcher{})
	clone := s.Clone()
	out, err := clone.dispatch(context.Background(), 0, []byte("hi"))
	if err != nil {
		t.Fatalf("dispatch on clone: %v", err)
	}
	if string(out) != "hi" {
		t.Fatalf("dispatch on clone = %q, want %q", out, "hi")
	}
}

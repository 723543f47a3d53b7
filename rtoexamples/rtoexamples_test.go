package rtoexamples_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-rto/rto"
	"github.com/go-rto/rto/rtoexamples"
	"github.com/go-rto/rto/rtotest"
	"go.uber.org/goleak"
)

func testConfig() rto.Config {
	cfg := rto.DefaultConfig()
	cfg.CallTimeout = 5 * time.Second
	cfg.CallSlots = 512
	cfg.ThreadPool = 64
	return cfg
}

// newPair builds two connected Contexts over an in-process pipe, the
// harness every scenario below shares.
func newPair(t *testing.T) (a, b *rto.Context) {
	t.Helper()
	ta, tb := rtotest.NewPipe()
	a = rto.NewContext(ta, testConfig(), nil, nil)
	b = rto.NewContext(tb, testConfig(), nil, nil)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// TestSimpleCall is spec.md §8 scenario 1.
func TestSimpleCall(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	handle, err := a.RegisterService(rtoexamples.NewAdderSkeleton(sumAdder{}))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	proxy := rtoexamples.NewAdderProxy(b.ImportFromHandle(handle))

	sum, err := proxy.Add(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum != 5 {
		t.Fatalf("Add(2, 3) = %d, want 5", sum)
	}
}

type sumAdder struct{}

func (sumAdder) Add(a, b int32) int32 { return a + b }

// TestObjectReturn is spec.md §8 scenario 2: factory.make() -> Counter,
// inc() three times, get() == 3.
func TestObjectReturn(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	handle, err := a.RegisterService(rtoexamples.NewFactorySkeleton(counterFactory{}))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	factory := rtoexamples.NewFactoryProxy(b.ImportFromHandle(handle))

	ctx := b.WithPort(context.Background())
	counter, err := factory.Make(ctx)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := counter.Inc(ctx); err != nil {
			t.Fatalf("Inc: %v", err)
		}
	}
	got, err := counter.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 3 {
		t.Fatalf("Get() = %d, want 3", got)
	}
}

type counterFactory struct{}

func (counterFactory) Make() rtoexamples.Counter { return rtoexamples.NewCounter() }

// TestObjectArgument is spec.md §8 scenario 3: store.order(card) pays 10
// off an 11-balance card (success) then a 9-balance card (failure).
func TestObjectArgument(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	handle, err := a.RegisterService(rtoexamples.NewStoreSkeleton(payingStore{}))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	store := rtoexamples.NewStoreProxy(b.ImportFromHandle(handle))
	ctx := b.WithPort(context.Background())

	ok, err := store.Order(ctx, rtoexamples.NewCreditCardSkeleton(rtoexamples.NewSimpleCreditCard(11)))
	if err != nil {
		t.Fatalf("Order(11): %v", err)
	}
	if !ok {
		t.Fatalf("Order(11) = false, want true")
	}

	ok, err = store.Order(ctx, rtoexamples.NewCreditCardSkeleton(rtoexamples.NewSimpleCreditCard(9)))
	if err != nil {
		t.Fatalf("Order(9): %v", err)
	}
	if ok {
		t.Fatalf("Order(9) = true, want false")
	}
}

type payingStore struct{}

func (payingStore) Order(ctx context.Context, card rtoexamples.CreditCardProxy) bool {
	ok, err := card.Pay(ctx, 10)
	return err == nil && ok
}

// TestConcurrentCalls is spec.md §8 scenario 4: 64 concurrent
// ping_barrier() calls on a barrier of width 65, released by the caller
// triggering the last party.
func TestConcurrentCalls(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	const parties = 64
	barrier := rtoexamples.NewBarrier(parties + 1)
	handle, err := a.RegisterService(rtoexamples.NewPingerSkeleton(rtoexamples.NewPinger(barrier)))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	proxy := rtoexamples.NewPingerProxy(b.ImportFromHandle(handle))

	var wg sync.WaitGroup
	errs := make(chan error, parties)
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := proxy.PingBarrier(context.Background()); err != nil {
				errs <- err
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	barrier.Arrive() // the caller-side 65th party releases everyone

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent ping_barrier calls did not all complete")
	}
	close(errs)
	for err := range errs {
		t.Errorf("PingBarrier: %v", err)
	}
}

// TestProxyDropDeletesObject is spec.md §8 scenario 5.
func TestProxyDropDeletesObject(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	before := a.RegistrySize()
	handle, err := a.RegisterService(rtoexamples.NewAdderSkeleton(sumAdder{}))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	if a.RegistrySize() != before+1 {
		t.Fatalf("RegistrySize after register = %d, want %d", a.RegistrySize(), before+1)
	}

	proxy := b.ImportFromHandle(handle)
	proxy.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.RegistrySize() != before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if a.RegistrySize() != before {
		t.Fatalf("RegistrySize after drop = %d, want %d", a.RegistrySize(), before)
	}
}

// TestFirmClose is spec.md §8 scenario 6: both peers call firm_close from
// separate goroutines; both succeed; subsequent calls fail with
// TransportTerminated.
func TestFirmClose(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) }) // runs after newPair's Close cleanup

	a, b := newPair(t)

	handle, err := a.RegisterService(rtoexamples.NewAdderSkeleton(sumAdder{}))
	if err != nil {
		t.Fatalf("RegisterService: %v", err)
	}
	proxy := rtoexamples.NewAdderProxy(b.ImportFromHandle(handle))
	if _, err := proxy.Add(context.Background(), 1, 1); err != nil {
		t.Fatalf("Add before close: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- a.FirmClose(2 * time.Second)
	}()
	go func() {
		defer wg.Done()
		errs <- b.FirmClose(2 * time.Second)
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("FirmClose: %v", err)
		}
	}

	if _, err := proxy.Add(context.Background(), 1, 1); err == nil {
		t.Fatal("Add after firm close succeeded, want TransportTerminated/ContextClosed")
	}
}

package rtoexamples

import (
	"context"
	"sync"

	"github.com/go-rto/rto"
	"golang.org/x/xerrors"
)

// CreditCard is scenario 3's object argument: store.order(card) calls back
// into card.pay(amount) on whichever side exported it.
type CreditCard interface {
	Pay(amount int32) bool
}

// SimpleCreditCard is a CreditCard with a fixed starting balance; Pay fails
// once the balance would go negative.
type SimpleCreditCard struct {
	mu      sync.Mutex
	balance int32
}

// NewSimpleCreditCard constructs a card with the given starting balance.
func NewSimpleCreditCard(balance int32) *SimpleCreditCard {
	return &SimpleCreditCard{balance: balance}
}

func (c *SimpleCreditCard) Pay(amount int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance < amount {
		return false
	}
	c.balance -= amount
	return true
}

var methodCreditCardPay uint32 = 0

func init() {
	rto.RegisterMethodID("CreditCard", "Pay", func(id uint32) { methodCreditCardPay = id })
}

// CreditCardSkeleton adapts a CreditCard implementation to rto.Dispatcher.
type CreditCardSkeleton struct {
	Impl CreditCard
}

// NewCreditCardSkeleton wraps impl for registration.
func NewCreditCardSkeleton(impl CreditCard) rto.Skeleton {
	return rto.NewSkeleton("CreditCard", CreditCardSkeleton{Impl: impl})
}

type creditCardPayArgs struct {
	Amount int32 `json:"amount"`
}

func (s CreditCardSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	codec := rto.CodecFromContext(ctx)
	switch methodID {
	case methodCreditCardPay:
		var args creditCardPayArgs
		if err := codec.Unmarshal(payload, &args); err != nil {
			return nil, err
		}
		return codec.Marshal(s.Impl.Pay(args.Amount))
	default:
		return nil, xerrors.Errorf("rtoexamples: CreditCard: unknown method %d", methodID)
	}
}

// CreditCardProxy pairs a ProxyHandle with the CreditCard call signature.
type CreditCardProxy struct {
	rto.ProxyHandle
}

// NewCreditCardProxy wraps h as a CreditCard proxy.
func NewCreditCardProxy(h rto.ProxyHandle) CreditCardProxy { return CreditCardProxy{h} }

func (p CreditCardProxy) Pay(ctx context.Context, amount int32) (bool, error) {
	var ok bool
	err := p.Call(ctx, "CreditCard", "Pay", methodCreditCardPay, creditCardPayArgs{Amount: amount}, &ok)
	return ok, err
}

// StoreHandler is the user-supplied Store implementation: it receives a
// live proxy to the caller's exported CreditCard rather than the card's
// concrete type, matching spec.md's object-argument scenario.
type StoreHandler interface {
	Order(ctx context.Context, card CreditCardProxy) bool
}

var methodStoreOrder uint32 = 0

func init() {
	rto.RegisterMethodID("Store", "Order", func(id uint32) { methodStoreOrder = id })
}

// StoreSkeleton adapts a StoreHandler implementation to rto.Dispatcher.
type StoreSkeleton struct {
	Impl StoreHandler
}

// NewStoreSkeleton wraps impl for registration.
func NewStoreSkeleton(impl StoreHandler) rto.Skeleton {
	return rto.NewSkeleton("Store", StoreSkeleton{Impl: impl})
}

type storeOrderArgs struct {
	Card rto.HandleToExchange `json:"card"`
}

func (s StoreSkeleton) Dispatch(ctx context.Context, methodID uint32, payload []byte) ([]byte, error) {
	codec := rto.CodecFromContext(ctx)
	switch methodID {
	case methodStoreOrder:
		var args storeOrderArgs
		if err := codec.Unmarshal(payload, &args); err != nil {
			return nil, err
		}
		card := NewCreditCardProxy(rto.ImportFromContext(ctx, args.Card))
		ok := s.Impl.Order(ctx, card)
		return codec.Marshal(ok)
	default:
		return nil, xerrors.Errorf("rtoexamples: Store: unknown method %d", methodID)
	}
}

// StoreProxy pairs a ProxyHandle with the Store call signature.
type StoreProxy struct {
	rto.ProxyHandle
}

// NewStoreProxy wraps h as a Store proxy.
func NewStoreProxy(h rto.ProxyHandle) StoreProxy { return StoreProxy{h} }

// Order exports card and passes its handle as the call argument; ctx must
// already carry the caller's Context as active port (Context.WithPort).
func (p StoreProxy) Order(ctx context.Context, card rto.Skeleton) (bool, error) {
	handle, err := rto.ExportFromContext(ctx, card)
	if err != nil {
		return false, err
	}
	var ok bool
	err = p.Call(ctx, "Store", "Order", methodStoreOrder, storeOrderArgs{Card: handle}, &ok)
	return ok, err
}

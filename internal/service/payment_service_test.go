package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/payment"
	"github.com/shinyyama/closet-market/internal/shipping"
)

// stubProvider accepts callbacks carrying sig=ok and reads the outcome
// straight from the query.
type stubProvider struct {
	intents []payment.Intent
	fail    error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) CreateIntent(_ context.Context, in payment.Intent) (*payment.Checkout, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	p.intents = append(p.intents, in)
	return &payment.Checkout{Provider: "stub", PayURL: "https://pay.example/" + in.OrderCode, Reference: in.OrderCode}, nil
}

func (p *stubProvider) VerifyCallback(q url.Values) (*payment.Result, error) {
	if q.Get("sig") != "ok" {
		return nil, payment.ErrInvalidSignature
	}
	amount, _ := strconv.ParseInt(q.Get("amount"), 10, 64)
	return &payment.Result{
		Provider:      "stub",
		OrderCode:     q.Get("code"),
		TransactionID: q.Get("txn"),
		Amount:        amount,
		Success:       q.Get("result") == "0",
		Code:          q.Get("result"),
	}, nil
}

func callback(o *model.Order, result, sig string) url.Values {
	return url.Values{
		"code":   {o.Code},
		"amount": {strconv.FormatInt(o.TotalAmount, 10)},
		"txn":    {"TXN-" + o.Code},
		"result": {result},
		"sig":    {sig},
	}
}

func newPaymentFixture(t *testing.T) (*fixture, OrderService, PaymentService, *stubProvider, *model.Order) {
	t.Helper()
	f, orders, l := newOrderFixture(t)
	stub := &stubProvider{}
	svc := NewPaymentService(f.store, orders, map[model.PaymentMethod]payment.Provider{
		model.PaymentMethodVNPay: stub,
	}, f.deps)
	return f, orders, svc, stub, createOrder(t, orders, l.ID)
}

func TestPaymentService_CreateIntent(t *testing.T) {
	t.Parallel()

	f, orders, svc, stub, o := newPaymentFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateIntent(ctx, User(seller), o.ID, "", ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller err = %v", err)
	}
	c, err := svc.CreateIntent(ctx, User(buyer), o.ID, "https://shop.example/return", "203.0.113.5")
	if err != nil {
		t.Fatal(err)
	}
	if c.Reference != o.Code || len(stub.intents) != 1 {
		t.Fatalf("checkout = %+v", c)
	}
	in := stub.intents[0]
	if in.Amount != o.TotalAmount || in.ClientIP != "203.0.113.5" || !in.At.Equal(f.clock.Now()) {
		t.Errorf("intent = %+v", in)
	}

	stub.fail = errors.New("gateway timeout")
	if _, err := svc.CreateIntent(ctx, User(buyer), o.ID, "", ""); !errors.Is(err, ErrExternalProvider) {
		t.Errorf("provider failure err = %v", err)
	}
	stub.fail = nil

	payOrder(t, orders, o.ID)
	if _, err := svc.CreateIntent(ctx, User(buyer), o.ID, "", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("paid order err = %v", err)
	}
}

func TestPaymentService_CreateIntentOffline(t *testing.T) {
	t.Parallel()

	f, orders, l := newOrderFixture(t)
	svc := NewPaymentService(f.store, orders, map[model.PaymentMethod]payment.Provider{
		model.PaymentMethodVNPay: &stubProvider{},
	}, f.deps)
	o, err := orders.Create(context.Background(), User(buyer), CreateOrderInput{
		ListingID:      l.ID,
		ShippingMethod: shipping.MethodStandard,
		PaymentMethod:  model.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateIntent(context.Background(), User(buyer), o.ID, "", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("cod order err = %v", err)
	}
}

func TestPaymentService_HandleCallback(t *testing.T) {
	t.Parallel()

	t.Run("verified success pays the order", func(t *testing.T) {
		t.Parallel()
		f, _, svc, _, o := newPaymentFixture(t)
		got, err := svc.HandleCallback(context.Background(), model.PaymentMethodVNPay, callback(o, "0", "ok"))
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.OrderStatusPaid || got.PaymentStatus != model.PaymentStatusPaid {
			t.Errorf("order = %s/%s", got.Status, got.PaymentStatus)
		}
		if txn := f.db.order(o.ID).TransactionID; txn != "TXN-"+o.Code {
			t.Errorf("transaction id = %v", txn)
		}
	})

	t.Run("bad signature leaves the order untouched", func(t *testing.T) {
		t.Parallel()
		f, _, svc, _, o := newPaymentFixture(t)
		_, err := svc.HandleCallback(context.Background(), model.PaymentMethodVNPay, callback(o, "0", "forged"))
		if !errors.Is(err, ErrExternalProvider) {
			t.Fatalf("err = %v", err)
		}
		if got := f.db.order(o.ID); got.PaymentStatus != model.PaymentStatusPending || got.Version != o.Version {
			t.Errorf("order changed: %+v", got)
		}
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		t.Parallel()
		f, _, svc, _, o := newPaymentFixture(t)
		q := callback(o, "0", "ok")
		q.Set("amount", "1000")
		if _, err := svc.HandleCallback(context.Background(), model.PaymentMethodVNPay, q); !errors.Is(err, ErrExternalProvider) {
			t.Fatalf("err = %v", err)
		}
		if got := f.db.order(o.ID); got.PaymentStatus != model.PaymentStatusPending {
			t.Errorf("payment status = %s", got.PaymentStatus)
		}
	})

	t.Run("decline marks the payment failed", func(t *testing.T) {
		t.Parallel()
		_, _, svc, _, o := newPaymentFixture(t)
		got, err := svc.HandleCallback(context.Background(), model.PaymentMethodVNPay, callback(o, "24", "ok"))
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.OrderStatusPendingPayment || got.PaymentStatus != model.PaymentStatusFailed {
			t.Errorf("order = %s/%s", got.Status, got.PaymentStatus)
		}
	})

	t.Run("late decline after payment is ignored", func(t *testing.T) {
		t.Parallel()
		f, _, svc, _, o := newPaymentFixture(t)
		ctx := context.Background()
		if _, err := svc.HandleCallback(ctx, model.PaymentMethodVNPay, callback(o, "0", "ok")); err != nil {
			t.Fatal(err)
		}
		got, err := svc.HandleCallback(ctx, model.PaymentMethodVNPay, callback(o, "24", "ok"))
		if err != nil {
			t.Fatal(err)
		}
		if got.PaymentStatus != model.PaymentStatusPaid || f.db.order(o.ID).PaymentStatus != model.PaymentStatusPaid {
			t.Errorf("late decline undid the payment: %s", got.PaymentStatus)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, _, svc, _, o := newPaymentFixture(t)
		if _, err := svc.HandleCallback(context.Background(), model.PaymentMethodMoMo, callback(o, "0", "ok")); !errors.Is(err, ErrValidation) {
			t.Errorf("err = %v", err)
		}
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/payment"
	"github.com/shinyyama/closet-market/internal/repository"
)

type PaymentService interface {
	// CreateIntent starts an online checkout for the buyer's order.
	CreateIntent(ctx context.Context, caller Caller, orderID uint64, returnURL, clientIP string) (*payment.Checkout, error)
	// HandleCallback verifies a provider callback and applies it as the
	// system caller. Unverifiable callbacks leave the order untouched.
	HandleCallback(ctx context.Context, provider model.PaymentMethod, params url.Values) (*model.Order, error)
}

type paymentService struct {
	store     repository.Store
	orders    OrderService
	providers map[model.PaymentMethod]payment.Provider
	logger    *slog.Logger
	deps      Deps
}

func NewPaymentService(store repository.Store, orders OrderService, providers map[model.PaymentMethod]payment.Provider, deps Deps) PaymentService {
	deps = deps.withDefaults()
	return &paymentService{store: store, orders: orders, providers: providers, logger: deps.Logger, deps: deps}
}

func (s *paymentService) CreateIntent(ctx context.Context, caller Caller, orderID uint64, returnURL, clientIP string) (*payment.Checkout, error) {
	o, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if caller.UID != o.BuyerUID {
		return nil, ErrForbidden
	}
	p, ok := s.providers[o.PaymentMethod]
	if !ok {
		return nil, invalid("payment_method", fmt.Sprintf("%s is not paid online", o.PaymentMethod))
	}
	if o.PaymentStatus == model.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: order %s is already paid", ErrInvalidTransition, o.Code)
	}
	if o.Status != model.OrderStatusPendingPayment {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, o.Code, o.Status)
	}
	c, err := p.CreateIntent(ctx, payment.Intent{
		OrderCode: o.Code,
		Amount:    o.TotalAmount,
		ReturnURL: returnURL,
		ClientIP:  clientIP,
		At:        s.deps.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalProvider, err)
	}
	s.logger.Info("payment intent created", "order_id", o.ID, "provider", c.Provider, "reference", c.Reference)
	return c, nil
}

func (s *paymentService) HandleCallback(ctx context.Context, provider model.PaymentMethod, params url.Values) (*model.Order, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, invalid("provider", "unknown payment provider")
	}
	res, err := p.VerifyCallback(params)
	if err != nil {
		s.logger.Warn("rejected payment callback", "provider", provider, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalProvider, err)
	}
	o, err := s.store.Orders().FindByCode(ctx, res.OrderCode)
	if err != nil {
		return nil, fromRepo(err)
	}
	if res.Amount != o.TotalAmount {
		s.logger.Warn("payment amount mismatch", "order_id", o.ID, "expected", o.TotalAmount, "got", res.Amount)
		return nil, fmt.Errorf("%w: amount %d does not match order total %d", ErrExternalProvider, res.Amount, o.TotalAmount)
	}

	status := model.PaymentStatusPaid
	if !res.Success {
		status = model.PaymentStatusFailed
	}
	out, err := s.orders.UpdatePayment(ctx, System(), o.ID, status, res.TransactionID)
	if err != nil && status == model.PaymentStatusFailed && errors.Is(err, ErrInvalidTransition) {
		// A late decline after a successful payment must not undo it.
		s.logger.Warn("ignored failed callback", "order_id", o.ID, "payment_status", o.PaymentStatus, "code", res.Code)
		return o, nil
	}
	return out, err
}

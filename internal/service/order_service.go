package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/shipping"
	"github.com/shopspring/decimal"
)

const maxReviewLen = 1000

type CreateOrderInput struct {
	ListingID uint64
	// AddressID 0 means the buyer's default address.
	AddressID      uint64
	ShippingMethod shipping.MethodID
	PaymentMethod  model.PaymentMethod
	BuyerNote      string
}

type OrderFilter struct {
	Role   repository.OrderRole
	Status model.OrderStatus
	Page   int
	Limit  int
}

type RoleStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Refunded  int64 `json:"refunded"`
	// Amount sums item prices of completed orders.
	Amount            int64 `json:"amount"`
	AverageOrderValue int64 `json:"average_order_value"`
}

type OrderStats struct {
	AsBuyer  RoleStats `json:"as_buyer"`
	AsSeller RoleStats `json:"as_seller"`
}

type OrderService interface {
	Create(ctx context.Context, caller Caller, in CreateOrderInput) (*model.Order, error)
	Get(ctx context.Context, caller Caller, id uint64) (*model.Order, error)
	List(ctx context.Context, caller Caller, f OrderFilter) ([]model.Order, int64, error)
	Stats(ctx context.Context, caller Caller) (*OrderStats, error)
	History(ctx context.Context, caller Caller, id uint64) ([]model.StatusEvent, error)
	SalesForExport(ctx context.Context, caller Caller) ([]model.Order, error)
	AdvanceFulfillment(ctx context.Context, caller Caller, id uint64, next model.OrderStatus, trackingNumber string) (*model.Order, error)
	UpdatePayment(ctx context.Context, caller Caller, id uint64, status model.PaymentStatus, transactionID string) (*model.Order, error)
	Cancel(ctx context.Context, caller Caller, id uint64, reason string) (*model.Order, error)
	Rate(ctx context.Context, caller Caller, id uint64, rating int, review string) (*model.Order, error)
}

type orderService struct {
	*lifecycle
	feeRate decimal.Decimal
}

func NewOrderService(store repository.Store, deps Deps, platformFeeRate float64) OrderService {
	return &orderService{
		lifecycle: newLifecycle(store, deps),
		feeRate:   decimal.NewFromFloat(platformFeeRate),
	}
}

func (s *orderService) ops(id uint64) entityOps[model.Order] {
	return entityOps[model.Order]{
		entity: model.EntityOrder,
		load: func(ctx context.Context, tx repository.Store) (*model.Order, error) {
			return tx.Orders().FindByID(ctx, id)
		},
		save: func(ctx context.Context, tx repository.Store, o *model.Order) error {
			return tx.Orders().Save(ctx, o)
		},
	}
}

// PlatformFee is the commission on itemPrice, rounded to the nearest dong.
func (s *orderService) PlatformFee(itemPrice int64) int64 {
	return decimal.NewFromInt(itemPrice).Mul(s.feeRate).Round(0).IntPart()
}

func (s *orderService) Create(ctx context.Context, caller Caller, in CreateOrderInput) (*model.Order, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	if in.ListingID == 0 {
		return nil, invalid("listing_id", "is required")
	}
	if in.ShippingMethod == "" {
		return nil, invalid("shipping_method", "is required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, invalid("payment_method", "unsupported payment method")
	}
	in.BuyerNote = strings.TrimSpace(in.BuyerNote)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var (
			order *model.Order
			m     mutation
		)
		now := s.Now()
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			locked, err := tx.Listings().FindForUpdate(ctx, in.ListingID)
			if err != nil {
				return fromRepo(err)
			}
			l := &locked[0]
			if l.SellerUID == caller.UID {
				return invalid("listing_id", "cannot buy your own listing")
			}
			if l.Status != model.ListingStatusActive || !l.ListingType.Sellable() ||
				l.SellingPrice == nil || *l.SellingPrice <= 0 {
				return fmt.Errorf("%w: listing %d is not for sale", ErrListingUnavailable, l.ID)
			}
			if err := ensureListingFree(ctx, tx, s.Now(), 0, l.ID); err != nil {
				return err
			}
			addr, err := resolveAddress(ctx, tx.Addresses(), caller.UID, in.AddressID)
			if err != nil {
				return err
			}
			quotes, err := quotesFor(l, addr)
			if err != nil {
				return err
			}
			q, ok := shipping.Find(quotes, in.ShippingMethod)
			if !ok {
				return invalid("shipping_method", "not offered for this listing and address")
			}
			code, err := uniqueCode(orderCodePrefix, now, func(c string) (bool, error) {
				return tx.Orders().CodeExists(ctx, c)
			})
			if err != nil {
				return err
			}

			o := s.buildOrder(code, caller.UID, l, addr, q, in)
			if err := tx.Orders().Create(ctx, o); err != nil {
				return err
			}
			reserved, err := tx.Listings().UpdateStatus(ctx, l.ID,
				[]model.ListingStatus{model.ListingStatusActive}, model.ListingStatusPending, now)
			if err != nil {
				return err
			}
			if !reserved {
				return fmt.Errorf("%w: listing %d was taken", ErrListingUnavailable, l.ID)
			}
			m.record(transition{
				eventType: events.TypeOrderCreated,
				entity:    model.EntityOrder,
				id:        o.ID,
				code:      o.Code,
				to:        string(o.Status),
				actor:     caller,
			})
			m.notify(model.Notification{
				UserUID:   o.SellerUID,
				Type:      "order_created",
				Title:     "New order",
				Body:      fmt.Sprintf("Order %s was placed for %s.", o.Code, o.ItemTitle),
				ListingID: ptr(o.ListingID),
				OrderID:   ptr(o.ID),
			})
			order = o
			return s.audit(ctx, tx, m.changes)
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fromRepo(err)
		}
		s.Metrics.RecordOrderAmount(ctx, order.TotalAmount)
		s.afterCommit(ctx, &m)
		return order, nil
	}
	return nil, ErrConcurrencyConflict
}

func (s *orderService) buildOrder(code, buyerUID string, l *model.Listing, addr *model.Address, q shipping.Quote, in CreateOrderInput) *model.Order {
	itemPrice := *l.SellingPrice
	platformFee := s.PlatformFee(itemPrice)
	o := &model.Order{
		Code:               code,
		BuyerUID:           buyerUID,
		SellerUID:          l.SellerUID,
		ListingID:          l.ID,
		ItemID:             l.ItemID,
		ItemTitle:          l.Title,
		ItemPrice:          itemPrice,
		ShippingFee:        q.Fee,
		PlatformFee:        platformFee,
		TotalAmount:        itemPrice + q.Fee + platformFee,
		ShippingMethod:     string(q.ID),
		ShippingMethodName: q.Name,
		ShippingProvider:   q.Provider(),
		DeliveryAddress:    addr.Snapshot(),
		PickupAddress: model.AddressSnapshot{
			Province: l.OriginProvince,
			District: l.OriginDistrict,
			Street:   l.OriginStreet,
			Lng:      l.Origin.Lng,
			Lat:      l.Origin.Lat,
		},
		BuyerNote:     in.BuyerNote,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPendingPayment,
		Version:       1,
	}
	if q.ETA != nil {
		o.EstimatedDaysMin = q.ETA.MinDays
		o.EstimatedDaysMax = q.ETA.MaxDays
	}
	return o
}

// ensureListingFree fails when any listing is held by an open order or by a
// non-terminal swap other than exceptSwap. A pending swap past its deadline
// no longer holds anything, swept or not.
func ensureListingFree(ctx context.Context, tx repository.Store, now time.Time, exceptSwap uint64, listingIDs ...uint64) error {
	busy, err := tx.Swaps().HasActiveForListings(ctx, listingIDs, exceptSwap, now)
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("%w: listing is part of an open swap", ErrListingCommitted)
	}
	for _, id := range listingIDs {
		busy, err := tx.Orders().HasOpenForListing(ctx, id)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: listing %d has an open order", ErrListingCommitted, id)
		}
	}
	return nil
}

func (s *orderService) Get(ctx context.Context, caller Caller, id uint64) (*model.Order, error) {
	o, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !o.IsParticipant(caller.UID) && !caller.Privileged() {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *orderService) List(ctx context.Context, caller Caller, f OrderFilter) ([]model.Order, int64, error) {
	if caller.Anonymous() {
		return nil, 0, ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, invalid("status", "unknown order status")
	}
	list, total, err := s.store.Orders().List(ctx, repository.OrderFilter{
		UserUID: caller.UID,
		Role:    f.Role,
		Status:  f.Status,
		Page:    repository.Page{Page: f.Page, Limit: f.Limit},
	})
	return list, total, fromRepo(err)
}

func (s *orderService) Stats(ctx context.Context, caller Caller) (*OrderStats, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	var out OrderStats
	for _, r := range []struct {
		role repository.OrderRole
		dst  *RoleStats
	}{
		{repository.OrderRoleBuyer, &out.AsBuyer},
		{repository.OrderRoleSeller, &out.AsSeller},
	} {
		rows, err := s.store.Orders().CountByStatus(ctx, caller.UID, r.role)
		if err != nil {
			return nil, fromRepo(err)
		}
		*r.dst = summarize(rows)
	}
	return &out, nil
}

func summarize(rows []repository.StatusCount) RoleStats {
	var st RoleStats
	for _, row := range rows {
		st.Total += row.Count
		switch model.OrderStatus(row.Status) {
		case model.OrderStatusCompleted:
			st.Completed += row.Count
			st.Amount += row.Amount
		case model.OrderStatusCancelled:
			st.Cancelled += row.Count
		case model.OrderStatusRefunded:
			st.Refunded += row.Count
		default:
			st.Active += row.Count
		}
	}
	if st.Completed > 0 {
		st.AverageOrderValue = st.Amount / st.Completed
	}
	return st
}

func (s *orderService) History(ctx context.Context, caller Caller, id uint64) ([]model.StatusEvent, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	list, err := s.store.Events().ListByEntity(ctx, id, model.EntityOrder, model.EntityOrderPayment)
	if err != nil {
		return nil, fromRepo(err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *orderService) SalesForExport(ctx context.Context, caller Caller) ([]model.Order, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	list, err := s.store.Orders().ListAllBySeller(ctx, caller.UID)
	return list, fromRepo(err)
}

func isFulfillmentStage(st model.OrderStatus) bool {
	switch st {
	case model.OrderStatusPreparing, model.OrderStatusShipping, model.OrderStatusDelivered, model.OrderStatusCompleted:
		return true
	}
	return false
}

// Every fulfillment stage, delivery and completion included, belongs to the
// seller. Admin and system callers may act for them.
func authorizeFulfillment(caller Caller, o *model.Order) error {
	if caller.Privileged() || (caller.UID != "" && caller.UID == o.SellerUID) {
		return nil
	}
	return ErrForbidden
}

func (s *orderService) AdvanceFulfillment(ctx context.Context, caller Caller, id uint64, next model.OrderStatus, trackingNumber string) (*model.Order, error) {
	if !next.Valid() {
		return nil, invalid("status", "unknown order status")
	}
	if !isFulfillmentStage(next) {
		return nil, fmt.Errorf("%w: %s is not a fulfillment stage", ErrInvalidTransition, next)
	}
	trackingNumber = strings.TrimSpace(trackingNumber)

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, o *model.Order, m *mutation) error {
		if err := authorizeFulfillment(caller, o); err != nil {
			return err
		}
		if o.Status == next {
			if trackingNumber != "" && trackingNumber != o.TrackingNumber {
				o.TrackingNumber = trackingNumber
				m.touch()
			}
			return nil
		}
		if !o.Status.CanTransitionTo(next) {
			return transitionError("order", o.Status, next)
		}
		now := s.Now()
		from := o.Status
		o.Status = next
		o.StampStatus(next, now)
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
		if next == model.OrderStatusCompleted {
			if err := s.complete(ctx, tx, o); err != nil {
				return err
			}
		}
		m.record(s.orderTransition(o, events.TypeOrderStatusChanged, string(from), string(next), caller))
		m.notify(s.notifyOthers(o, caller, "order_"+string(next),
			"Order "+o.Code, fmt.Sprintf("Order %s is now %s.", o.Code, next))...)
		return nil
	})
}

func (s *orderService) complete(ctx context.Context, tx repository.Store, o *model.Order) error {
	if _, err := tx.Listings().UpdateStatus(ctx, o.ListingID,
		[]model.ListingStatus{model.ListingStatusPending, model.ListingStatusActive},
		model.ListingStatusSold, s.Now()); err != nil {
		return err
	}
	if err := tx.Stats().Increment(ctx, o.SellerUID, repository.CounterSales); err != nil {
		return err
	}
	return tx.Stats().Increment(ctx, o.BuyerUID, repository.CounterPurchases)
}

func (s *orderService) releaseListing(ctx context.Context, tx repository.Store, o *model.Order) error {
	_, err := tx.Listings().UpdateStatus(ctx, o.ListingID,
		[]model.ListingStatus{model.ListingStatusPending}, model.ListingStatusActive, s.Now())
	return err
}

// UpdatePayment moves payment_status. A payment reaching paid also moves a
// pending_payment order to paid; a refund moves any open order to refunded.
func (s *orderService) UpdatePayment(ctx context.Context, caller Caller, id uint64, status model.PaymentStatus, transactionID string) (*model.Order, error) {
	if !status.Valid() {
		return nil, invalid("payment_status", "unknown payment status")
	}
	transactionID = strings.TrimSpace(transactionID)

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, o *model.Order, m *mutation) error {
		if !caller.Privileged() && caller.UID != o.SellerUID {
			return ErrForbidden
		}
		if o.PaymentStatus == status {
			if status == model.PaymentStatusPaid && transactionID != "" &&
				o.TransactionID != "" && transactionID != o.TransactionID {
				return fmt.Errorf("%w: order already paid by transaction %s", ErrInvalidTransition, o.TransactionID)
			}
			if transactionID != "" && o.TransactionID == "" {
				o.TransactionID = transactionID
				m.touch()
			}
			return nil
		}
		if !o.PaymentStatus.CanTransitionTo(status) {
			return transitionError("payment", o.PaymentStatus, status)
		}
		now := s.Now()
		from := o.PaymentStatus
		o.PaymentStatus = status
		if transactionID != "" {
			o.TransactionID = transactionID
		}
		m.record(s.orderTransition(o, events.TypeOrderPaymentChanged, string(from), string(status), caller))

		switch status {
		case model.PaymentStatusPaid:
			o.StampStatus(model.OrderStatusPaid, now)
			if o.Status == model.OrderStatusPendingPayment {
				o.Status = model.OrderStatusPaid
				m.record(s.orderTransition(o, events.TypeOrderStatusChanged,
					string(model.OrderStatusPendingPayment), string(model.OrderStatusPaid), caller))
				m.notify(model.Notification{
					UserUID: o.SellerUID,
					Type:    "order_paid",
					Title:   "Order paid",
					Body:    fmt.Sprintf("Order %s has been paid. Please prepare the item.", o.Code),
					OrderID: ptr(o.ID),
				})
			}
		case model.PaymentStatusRefunded:
			if !o.Status.IsTerminal() {
				prev := o.Status
				o.Status = model.OrderStatusRefunded
				o.StampStatus(model.OrderStatusRefunded, now)
				if err := s.releaseListing(ctx, tx, o); err != nil {
					return err
				}
				m.record(s.orderTransition(o, events.TypeOrderStatusChanged,
					string(prev), string(model.OrderStatusRefunded), caller))
			}
			m.notify(model.Notification{
				UserUID: o.BuyerUID,
				Type:    "order_refunded",
				Title:   "Refund issued",
				Body:    fmt.Sprintf("Payment for order %s was refunded.", o.Code),
				OrderID: ptr(o.ID),
			})
		}
		return nil
	})
}

func (s *orderService) Cancel(ctx context.Context, caller Caller, id uint64, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, o *model.Order, m *mutation) error {
		if !o.IsParticipant(caller.UID) && !caller.Privileged() {
			return ErrForbidden
		}
		if o.Status == model.OrderStatusCancelled {
			return nil
		}
		if !o.Status.Cancellable() {
			return transitionError("order", o.Status, model.OrderStatusCancelled)
		}
		from := o.Status
		o.Status = model.OrderStatusCancelled
		o.StampStatus(model.OrderStatusCancelled, s.Now())
		o.CancelReason = reason
		o.CancelledBy = cancelledBy(caller, o)
		if err := s.releaseListing(ctx, tx, o); err != nil {
			return err
		}
		m.record(s.orderTransition(o, events.TypeOrderStatusChanged, string(from), string(o.Status), caller))
		m.notify(s.notifyOthers(o, caller, "order_cancelled", "Order cancelled",
			fmt.Sprintf("Order %s was cancelled: %s", o.Code, reason))...)
		return nil
	})
}

func cancelledBy(caller Caller, o *model.Order) model.CancelledBy {
	switch {
	case caller.Privileged():
		return model.CancelledByAdmin
	case caller.UID == o.BuyerUID:
		return model.CancelledByBuyer
	}
	return model.CancelledBySeller
}

func (s *orderService) Rate(ctx context.Context, caller Caller, id uint64, rating int, review string) (*model.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	review = strings.TrimSpace(review)
	if len(review) > maxReviewLen {
		return nil, invalid("review", "is too long")
	}

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, o *model.Order, m *mutation) error {
		if !o.IsParticipant(caller.UID) {
			return ErrForbidden
		}
		if o.Status != model.OrderStatusCompleted {
			return fmt.Errorf("%w: only completed orders can be rated", ErrInvalidTransition)
		}
		slot, text, at, rated := &o.BuyerRating, &o.BuyerReview, &o.BuyerRatedAt, o.SellerUID
		if caller.UID == o.SellerUID {
			slot, text, at, rated = &o.SellerRating, &o.SellerReview, &o.SellerRatedAt, o.BuyerUID
		}
		if *slot != nil {
			if **slot == rating && *text == review {
				return nil
			}
			return ErrAlreadyRated
		}
		*slot = ptr(rating)
		*text = review
		*at = ptr(s.Now())
		if err := tx.Stats().AddRating(ctx, rated, rating); err != nil {
			return err
		}
		m.touch()
		m.notify(model.Notification{
			UserUID: rated,
			Type:    "order_rated",
			Title:   "New rating",
			Body:    fmt.Sprintf("You received %d stars for order %s.", rating, o.Code),
			OrderID: ptr(o.ID),
		})
		return nil
	})
}

func (s *orderService) orderTransition(o *model.Order, eventType, from, to string, actor Caller) transition {
	return transition{
		eventType: eventType,
		entity:    model.EntityOrder,
		id:        o.ID,
		code:      o.Code,
		from:      from,
		to:        to,
		actor:     actor,
	}
}

// notifyOthers addresses every participant except the actor.
func (s *orderService) notifyOthers(o *model.Order, actor Caller, typ, title, body string) []model.Notification {
	var out []model.Notification
	for _, uid := range []string{o.BuyerUID, o.SellerUID} {
		if uid == actor.UID {
			continue
		}
		out = append(out, model.Notification{
			UserUID:   uid,
			Type:      typ,
			Title:     title,
			Body:      body,
			ListingID: ptr(o.ListingID),
			OrderID:   ptr(o.ID),
		})
	}
	return out
}

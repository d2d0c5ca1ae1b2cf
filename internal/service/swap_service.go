package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
	"github.com/shinyyama/closet-market/internal/shipping"
)

const DefaultSwapTTL = 7 * 24 * time.Hour

type ProposeSwapInput struct {
	RequesterListingID uint64
	ReceiverListingID  uint64
	// AddressID is where the requester wants to receive the item; 0 means
	// the default address, if any.
	AddressID uint64
	Message   string
}

type SwapShippingInput struct {
	Method         shipping.MethodID
	TrackingNumber string
}

type SwapFilter struct {
	Role   repository.SwapRole
	Status model.SwapStatus
	Page   int
	Limit  int
}

type SwapStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Rejected   int64 `json:"rejected"`
	Cancelled  int64 `json:"cancelled"`
	Expired    int64 `json:"expired"`
}

type SwapService interface {
	Propose(ctx context.Context, caller Caller, in ProposeSwapInput) (*model.SwapRequest, error)
	Get(ctx context.Context, caller Caller, id uint64) (*model.SwapRequest, error)
	List(ctx context.Context, caller Caller, f SwapFilter) ([]model.SwapRequest, int64, error)
	Stats(ctx context.Context, caller Caller) (*SwapStats, error)
	History(ctx context.Context, caller Caller, id uint64) ([]model.StatusEvent, error)
	Accept(ctx context.Context, caller Caller, id, addressID uint64, message string) (*model.SwapRequest, error)
	Reject(ctx context.Context, caller Caller, id uint64, reason string) (*model.SwapRequest, error)
	Cancel(ctx context.Context, caller Caller, id uint64, reason string) (*model.SwapRequest, error)
	UpdateShipping(ctx context.Context, caller Caller, id uint64, in SwapShippingInput) (*model.SwapRequest, error)
	MarkDelivered(ctx context.Context, caller Caller, id uint64) (*model.SwapRequest, error)
	Rate(ctx context.Context, caller Caller, id uint64, rating int, review string) (*model.SwapRequest, error)
	// ExpireOverdue flips up to limit overdue pending swaps to expired.
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

type swapService struct {
	*lifecycle
	ttl time.Duration
}

func NewSwapService(store repository.Store, deps Deps, ttl time.Duration) SwapService {
	if ttl <= 0 {
		ttl = DefaultSwapTTL
	}
	return &swapService{lifecycle: newLifecycle(store, deps), ttl: ttl}
}

func (s *swapService) ops(id uint64) entityOps[model.SwapRequest] {
	return entityOps[model.SwapRequest]{
		entity: model.EntitySwap,
		load: func(ctx context.Context, tx repository.Store) (*model.SwapRequest, error) {
			return tx.Swaps().FindByID(ctx, id)
		},
		save: func(ctx context.Context, tx repository.Store, sw *model.SwapRequest) error {
			return tx.Swaps().Save(ctx, sw)
		},
	}
}

func (s *swapService) Propose(ctx context.Context, caller Caller, in ProposeSwapInput) (*model.SwapRequest, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	if in.RequesterListingID == 0 || in.ReceiverListingID == 0 {
		return nil, invalid("listing_id", "both listings are required")
	}
	if in.RequesterListingID == in.ReceiverListingID {
		return nil, invalid("listing_id", "cannot swap a listing with itself")
	}
	in.Message = strings.TrimSpace(in.Message)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var (
			swap *model.SwapRequest
			m    mutation
		)
		now := s.Now()
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			locked, err := tx.Listings().FindForUpdate(ctx, in.RequesterListingID, in.ReceiverListingID)
			if err != nil {
				return fromRepo(err)
			}
			mine, theirs := pickListings(locked, in.RequesterListingID, in.ReceiverListingID)
			if mine.SellerUID != caller.UID {
				return fmt.Errorf("%w: you do not own listing %d", ErrForbidden, mine.ID)
			}
			if theirs.SellerUID == caller.UID {
				return invalid("receiver_listing_id", "cannot swap with yourself")
			}
			for _, l := range []*model.Listing{mine, theirs} {
				if l.Status != model.ListingStatusActive || !l.ListingType.Swappable() {
					return fmt.Errorf("%w: listing %d is not open for swaps", ErrListingUnavailable, l.ID)
				}
			}
			if err := ensureListingFree(ctx, tx, s.Now(), 0, mine.ID, theirs.ID); err != nil {
				return err
			}
			var snapshot model.AddressSnapshot
			addr, err := resolveAddress(ctx, tx.Addresses(), caller.UID, in.AddressID)
			switch {
			case err == nil:
				snapshot = addr.Snapshot()
			case in.AddressID != 0 || !errors.Is(err, ErrValidation):
				return err
			}
			code, err := uniqueCode(swapCodePrefix, now, func(c string) (bool, error) {
				return tx.Swaps().CodeExists(ctx, c)
			})
			if err != nil {
				return err
			}
			sw := &model.SwapRequest{
				Code:               code,
				RequesterUID:       caller.UID,
				ReceiverUID:        theirs.SellerUID,
				RequesterListingID: mine.ID,
				RequesterItemID:    mine.ItemID,
				ReceiverListingID:  theirs.ID,
				ReceiverItemID:     theirs.ItemID,
				Message:            in.Message,
				Status:             model.SwapStatusPending,
				RequesterAddress:   snapshot,
				ExpiresAt:          now.Add(s.ttl),
				Version:            1,
			}
			if err := tx.Swaps().Create(ctx, sw); err != nil {
				return err
			}
			m.record(swapTransition(sw, events.TypeSwapProposed, "", string(sw.Status), caller, ""))
			m.notify(model.Notification{
				UserUID:   sw.ReceiverUID,
				Type:      "swap_proposed",
				Title:     "New swap request",
				Body:      fmt.Sprintf("Someone wants to swap %q for %q.", mine.Title, theirs.Title),
				ListingID: ptr(theirs.ID),
				SwapID:    ptr(sw.ID),
			})
			swap = sw
			return s.audit(ctx, tx, m.changes)
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fromRepo(err)
		}
		s.afterCommit(ctx, &m)
		return swap, nil
	}
	return nil, ErrConcurrencyConflict
}

func pickListings(locked []model.Listing, mineID, theirsID uint64) (mine, theirs *model.Listing) {
	for i := range locked {
		switch locked[i].ID {
		case mineID:
			mine = &locked[i]
		case theirsID:
			theirs = &locked[i]
		}
	}
	return mine, theirs
}

// Get expires an overdue pending swap before returning it.
func (s *swapService) Get(ctx context.Context, caller Caller, id uint64) (*model.SwapRequest, error) {
	sw, err := s.store.Swaps().FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if _, ok := sw.PartyOf(caller.UID); !ok && !caller.Privileged() {
		return nil, ErrForbidden
	}
	if sw.Overdue(s.Now()) {
		return s.expire(ctx, id, caller)
	}
	return sw, nil
}

func (s *swapService) expire(ctx context.Context, id uint64, caller Caller) (*model.SwapRequest, error) {
	return mutate(ctx, s.lifecycle, s.ops(id), func(_ repository.Store, sw *model.SwapRequest, m *mutation) error {
		s.expireInPlace(sw, caller, m)
		return nil
	})
}

// expireInPlace is a no-op unless sw is pending past its deadline.
func (s *swapService) expireInPlace(sw *model.SwapRequest, caller Caller, m *mutation) bool {
	now := s.Now()
	if !sw.Overdue(now) {
		return false
	}
	sw.Status = model.SwapStatusExpired
	sw.ExpiredAt = ptr(now)
	m.record(swapTransition(sw, events.TypeSwapStatusChanged,
		string(model.SwapStatusPending), string(model.SwapStatusExpired), caller, "expired"))
	m.notify(model.Notification{
		UserUID: sw.RequesterUID,
		Type:    "swap_expired",
		Title:   "Swap request expired",
		Body:    fmt.Sprintf("Swap %s expired without an answer.", sw.Code),
		SwapID:  ptr(sw.ID),
	})
	return true
}

func (s *swapService) List(ctx context.Context, caller Caller, f SwapFilter) ([]model.SwapRequest, int64, error) {
	if caller.Anonymous() {
		return nil, 0, ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, invalid("status", "unknown swap status")
	}
	list, total, err := s.store.Swaps().List(ctx, repository.SwapFilter{
		UserUID: caller.UID,
		Role:    f.Role,
		Status:  f.Status,
		Page:    repository.Page{Page: f.Page, Limit: f.Limit},
	})
	return list, total, fromRepo(err)
}

func (s *swapService) Stats(ctx context.Context, caller Caller) (*SwapStats, error) {
	if caller.Anonymous() {
		return nil, ErrForbidden
	}
	rows, err := s.store.Swaps().CountByStatus(ctx, caller.UID)
	if err != nil {
		return nil, fromRepo(err)
	}
	var st SwapStats
	for _, r := range rows {
		st.Total += r.Count
		switch model.SwapStatus(r.Status) {
		case model.SwapStatusPending:
			st.Pending += r.Count
		case model.SwapStatusAccepted, model.SwapStatusInProgress:
			st.InProgress += r.Count
		case model.SwapStatusCompleted:
			st.Completed += r.Count
		case model.SwapStatusRejected:
			st.Rejected += r.Count
		case model.SwapStatusCancelled:
			st.Cancelled += r.Count
		case model.SwapStatusExpired:
			st.Expired += r.Count
		}
	}
	return &st, nil
}

func (s *swapService) History(ctx context.Context, caller Caller, id uint64) ([]model.StatusEvent, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}
	list, err := s.store.Events().ListByEntity(ctx, id, model.EntitySwap)
	return list, fromRepo(err)
}

func (s *swapService) Accept(ctx context.Context, caller Caller, id, addressID uint64, message string) (*model.SwapRequest, error) {
	message = strings.TrimSpace(message)

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, sw *model.SwapRequest, m *mutation) error {
		if caller.UID == "" || caller.UID != sw.ReceiverUID {
			return ErrForbidden
		}
		if sw.Status == model.SwapStatusAccepted || sw.Status == model.SwapStatusInProgress {
			return nil
		}
		if s.expireInPlace(sw, caller, m) {
			m.failAfterCommit = ErrSwapExpired
			return nil
		}
		if !sw.Status.CanTransitionTo(model.SwapStatusAccepted) {
			return transitionError("swap", sw.Status, model.SwapStatusAccepted)
		}
		addr, err := resolveAddress(ctx, tx.Addresses(), caller.UID, addressID)
		if err != nil {
			return err
		}
		locked, err := tx.Listings().FindForUpdate(ctx, sw.ListingIDs()...)
		if err != nil {
			return fromRepo(err)
		}
		for _, l := range locked {
			if l.Status != model.ListingStatusActive {
				return fmt.Errorf("%w: listing %d is no longer active", ErrListingUnavailable, l.ID)
			}
		}
		if err := ensureListingFree(ctx, tx, s.Now(), sw.ID, sw.ListingIDs()...); err != nil {
			return err
		}
		if err := s.moveListings(ctx, tx, sw, model.ListingStatusActive, model.ListingStatusPending); err != nil {
			return err
		}
		sw.Status = model.SwapStatusAccepted
		sw.RespondedAt = ptr(s.Now())
		sw.ResponseMessage = message
		sw.ReceiverAddress = addr.Snapshot()
		m.record(swapTransition(sw, events.TypeSwapStatusChanged,
			string(model.SwapStatusPending), string(model.SwapStatusAccepted), caller, ""))
		m.notify(model.Notification{
			UserUID: sw.RequesterUID,
			Type:    "swap_accepted",
			Title:   "Swap accepted",
			Body:    fmt.Sprintf("Swap %s was accepted. Time to ship your item.", sw.Code),
			SwapID:  ptr(sw.ID),
		})
		return nil
	})
}

func (s *swapService) Reject(ctx context.Context, caller Caller, id uint64, reason string) (*model.SwapRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	return mutate(ctx, s.lifecycle, s.ops(id), func(_ repository.Store, sw *model.SwapRequest, m *mutation) error {
		if caller.UID == "" || caller.UID != sw.ReceiverUID {
			return ErrForbidden
		}
		if sw.Status == model.SwapStatusRejected {
			return nil
		}
		if s.expireInPlace(sw, caller, m) {
			m.failAfterCommit = ErrSwapExpired
			return nil
		}
		if !sw.Status.CanTransitionTo(model.SwapStatusRejected) {
			return transitionError("swap", sw.Status, model.SwapStatusRejected)
		}
		sw.Status = model.SwapStatusRejected
		sw.RespondedAt = ptr(s.Now())
		sw.RejectReason = reason
		m.record(swapTransition(sw, events.TypeSwapStatusChanged,
			string(model.SwapStatusPending), string(model.SwapStatusRejected), caller, reason))
		m.notify(model.Notification{
			UserUID: sw.RequesterUID,
			Type:    "swap_rejected",
			Title:   "Swap declined",
			Body:    fmt.Sprintf("Swap %s was declined: %s", sw.Code, reason),
			SwapID:  ptr(sw.ID),
		})
		return nil
	})
}

func (s *swapService) Cancel(ctx context.Context, caller Caller, id uint64, reason string) (*model.SwapRequest, error) {
	reason = strings.TrimSpace(reason)

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, sw *model.SwapRequest, m *mutation) error {
		party, ok := sw.PartyOf(caller.UID)
		if !ok {
			if !caller.Privileged() {
				return ErrForbidden
			}
			party = model.SwapPartyAdmin
		}
		if sw.Status == model.SwapStatusCancelled {
			return nil
		}
		if s.expireInPlace(sw, caller, m) {
			m.failAfterCommit = ErrSwapExpired
			return nil
		}
		if !sw.Status.CanTransitionTo(model.SwapStatusCancelled) {
			return transitionError("swap", sw.Status, model.SwapStatusCancelled)
		}
		from := sw.Status
		if from == model.SwapStatusAccepted {
			if err := s.moveListings(ctx, tx, sw, model.ListingStatusPending, model.ListingStatusActive); err != nil {
				return err
			}
		}
		sw.Status = model.SwapStatusCancelled
		sw.CancelledAt = ptr(s.Now())
		sw.CancelReason = reason
		sw.CancelledBy = party
		m.record(swapTransition(sw, events.TypeSwapStatusChanged, string(from), string(sw.Status), caller, reason))
		for _, uid := range []string{sw.RequesterUID, sw.ReceiverUID} {
			if uid == caller.UID {
				continue
			}
			m.notify(model.Notification{
				UserUID: uid,
				Type:    "swap_cancelled",
				Title:   "Swap cancelled",
				Body:    fmt.Sprintf("Swap %s was cancelled.", sw.Code),
				SwapID:  ptr(sw.ID),
			})
		}
		return nil
	})
}

func (s *swapService) UpdateShipping(ctx context.Context, caller Caller, id uint64, in SwapShippingInput) (*model.SwapRequest, error) {
	switch in.Method {
	case shipping.MethodStandard, shipping.MethodExpress, shipping.MethodSelfDelivery, shipping.MethodMeetup:
	case "":
		return nil, invalid("method", "is required")
	default:
		return nil, invalid("method", "unknown shipping method")
	}
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)

	return mutate(ctx, s.lifecycle, s.ops(id), func(_ repository.Store, sw *model.SwapRequest, m *mutation) error {
		party, ok := sw.PartyOf(caller.UID)
		if !ok {
			return ErrForbidden
		}
		if sw.Status != model.SwapStatusAccepted && sw.Status != model.SwapStatusInProgress {
			return fmt.Errorf("%w: swap %s is %s", ErrInvalidTransition, sw.Code, sw.Status)
		}
		leg := sw.Leg(party)
		if leg.Shipped() && leg.Method == string(in.Method) &&
			(in.TrackingNumber == "" || in.TrackingNumber == leg.TrackingNumber) {
			return nil
		}
		now := s.Now()
		leg.Method = string(in.Method)
		if in.TrackingNumber != "" {
			leg.TrackingNumber = in.TrackingNumber
		}
		if leg.ShippedAt == nil {
			leg.ShippedAt = ptr(now)
		}
		from := sw.Status
		if from == model.SwapStatusAccepted {
			sw.Status = model.SwapStatusInProgress
			sw.StartedAt = ptr(now)
			m.record(swapTransition(sw, events.TypeSwapStatusChanged, string(from), string(sw.Status), caller, string(party)+" shipped"))
		} else {
			m.record(swapTransition(sw, events.TypeSwapShippingUpdated, string(from), string(from), caller, string(party)+" shipped"))
		}
		m.notify(model.Notification{
			UserUID: sw.UIDOf(party.Other()),
			Type:    "swap_shipped",
			Title:   "Item on the way",
			Body:    fmt.Sprintf("Your swap partner shipped their item for %s.", sw.Code),
			SwapID:  ptr(sw.ID),
		})
		return nil
	})
}

// MarkDelivered confirms the caller received the counterpart's item. The
// swap completes once both legs are confirmed.
func (s *swapService) MarkDelivered(ctx context.Context, caller Caller, id uint64) (*model.SwapRequest, error) {
	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, sw *model.SwapRequest, m *mutation) error {
		party, ok := sw.PartyOf(caller.UID)
		if !ok {
			return ErrForbidden
		}
		incoming := sw.Leg(party.Other())
		if incoming.Delivered() {
			return nil
		}
		if sw.Status != model.SwapStatusInProgress || !incoming.Shipped() {
			return fmt.Errorf("%w: the other party has not shipped yet", ErrInvalidTransition)
		}
		now := s.Now()
		incoming.DeliveredAt = ptr(now)
		if !sw.BothDelivered() {
			m.record(swapTransition(sw, events.TypeSwapShippingUpdated, string(sw.Status), string(sw.Status),
				caller, string(party.Other())+" delivered"))
			return nil
		}
		if err := s.moveListings(ctx, tx, sw, model.ListingStatusPending, model.ListingStatusSwapped); err != nil {
			return err
		}
		for _, uid := range []string{sw.RequesterUID, sw.ReceiverUID} {
			if err := tx.Stats().Increment(ctx, uid, repository.CounterSwaps); err != nil {
				return err
			}
		}
		sw.Status = model.SwapStatusCompleted
		sw.CompletedAt = ptr(now)
		m.record(swapTransition(sw, events.TypeSwapStatusChanged,
			string(model.SwapStatusInProgress), string(model.SwapStatusCompleted), caller, ""))
		for _, uid := range []string{sw.RequesterUID, sw.ReceiverUID} {
			m.notify(model.Notification{
				UserUID: uid,
				Type:    "swap_completed",
				Title:   "Swap completed",
				Body:    fmt.Sprintf("Swap %s is complete. Leave a rating for your partner.", sw.Code),
				SwapID:  ptr(sw.ID),
			})
		}
		return nil
	})
}

func (s *swapService) Rate(ctx context.Context, caller Caller, id uint64, rating int, review string) (*model.SwapRequest, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	review = strings.TrimSpace(review)
	if len(review) > maxReviewLen {
		return nil, invalid("review", "is too long")
	}

	return mutate(ctx, s.lifecycle, s.ops(id), func(tx repository.Store, sw *model.SwapRequest, m *mutation) error {
		party, ok := sw.PartyOf(caller.UID)
		if !ok {
			return ErrForbidden
		}
		if sw.Status != model.SwapStatusCompleted {
			return fmt.Errorf("%w: only completed swaps can be rated", ErrInvalidTransition)
		}
		slot, text, at := &sw.RequesterRating, &sw.RequesterReview, &sw.RequesterRatedAt
		if party == model.SwapPartyReceiver {
			slot, text, at = &sw.ReceiverRating, &sw.ReceiverReview, &sw.ReceiverRatedAt
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
		rated := sw.UIDOf(party.Other())
		if err := tx.Stats().AddRating(ctx, rated, rating); err != nil {
			return err
		}
		m.touch()
		m.notify(model.Notification{
			UserUID: rated,
			Type:    "swap_rated",
			Title:   "New rating",
			Body:    fmt.Sprintf("You received %d stars for swap %s.", rating, sw.Code),
			SwapID:  ptr(sw.ID),
		})
		return nil
	})
}

func (s *swapService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.store.Swaps().ListOverdue(ctx, s.Now(), limit)
	if err != nil {
		return 0, fromRepo(err)
	}
	expired := 0
	for _, sw := range overdue {
		out, err := s.expire(ctx, sw.ID, System())
		if err != nil {
			s.Logger.Error("failed to expire swap", "error", err, "swap_id", sw.ID)
			continue
		}
		if out.Status == model.SwapStatusExpired {
			expired++
		}
	}
	return expired, nil
}

// moveListings moves both listings from one status to another; it fails if
// either listing is not in the expected status.
func (s *swapService) moveListings(ctx context.Context, tx repository.Store, sw *model.SwapRequest, from, to model.ListingStatus) error {
	for _, id := range sw.ListingIDs() {
		ok, err := tx.Listings().UpdateStatus(ctx, id, []model.ListingStatus{from}, to, s.Now())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: listing %d is not %s", ErrListingUnavailable, id, from)
		}
	}
	return nil
}

func swapTransition(sw *model.SwapRequest, eventType, from, to string, actor Caller, note string) transition {
	return transition{
		eventType: eventType,
		entity:    model.EntitySwap,
		id:        sw.ID,
		code:      sw.Code,
		from:      from,
		to:        to,
		note:      note,
		actor:     actor,
	}
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

const maxAttempts = 3

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type TransitionRecorder interface {
	RecordTransition(ctx context.Context, entity, from, to string)
	RecordConflict(ctx context.Context, entity string)
	RecordOrderAmount(ctx context.Context, amount int64)
}

type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Deps are the collaborators every lifecycle service shares. Zero fields get
// silent defaults.
type Deps struct {
	Logger   *slog.Logger
	Events   EventPublisher
	Metrics  TransitionRecorder
	Notifier Notifier
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(context.Context, string, string, string) {}
func (nopRecorder) RecordConflict(context.Context, string)                   {}
func (nopRecorder) RecordOrderAmount(context.Context, int64)                 {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification) {}

// transition is one committed status change plus what to tell whom.
type transition struct {
	eventType string
	entity    string
	id        uint64
	code      string
	from      string
	to        string
	note      string
	actor     Caller
}

// mutation collects the effects of one attempt.
type mutation struct {
	dirty   bool
	changes []transition
	notices []model.Notification
	// failAfterCommit is returned to the caller once the transaction commits.
	failAfterCommit error
}

func (m *mutation) touch() { m.dirty = true }

func (m *mutation) record(t transition) {
	m.dirty = true
	m.changes = append(m.changes, t)
}

func (m *mutation) notify(n ...model.Notification) {
	m.notices = append(m.notices, n...)
}

type lifecycle struct {
	store repository.Store
	Deps
}

func newLifecycle(store repository.Store, deps Deps) *lifecycle {
	return &lifecycle{store: store, Deps: deps.withDefaults()}
}

type entityOps[T any] struct {
	entity string
	load   func(ctx context.Context, tx repository.Store) (*T, error)
	save   func(ctx context.Context, tx repository.Store, v *T) error
}

// mutate loads the entity, applies fn and saves it under its version guard,
// all in one transaction. A lost version race retries the whole attempt.
// Audit rows are written in the same transaction; logs, metrics, events
// and notifications go out only after commit.
func mutate[T any](ctx context.Context, lc *lifecycle, ops entityOps[T], fn func(tx repository.Store, v *T, m *mutation) error) (*T, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var (
			out *T
			m   mutation
		)
		err := lc.store.Transaction(ctx, func(tx repository.Store) error {
			v, err := ops.load(ctx, tx)
			if err != nil {
				return fromRepo(err)
			}
			if err := fn(tx, v, &m); err != nil {
				return err
			}
			if m.dirty {
				if err := ops.save(ctx, tx, v); err != nil {
					return err
				}
			}
			if err := lc.audit(ctx, tx, m.changes); err != nil {
				return err
			}
			out = v
			return nil
		})
		if errors.Is(err, repository.ErrStaleVersion) {
			lc.Metrics.RecordConflict(ctx, ops.entity)
			lc.Logger.Warn("version conflict, retrying", "entity", ops.entity, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fromRepo(err)
		}
		lc.afterCommit(ctx, &m)
		if m.failAfterCommit != nil {
			return out, m.failAfterCommit
		}
		return out, nil
	}
	return nil, ErrConcurrencyConflict
}

func (lc *lifecycle) audit(ctx context.Context, tx repository.Store, changes []transition) error {
	for _, c := range changes {
		auditType := c.entity
		if c.eventType == events.TypeOrderPaymentChanged {
			auditType = model.EntityOrderPayment
		}
		if err := tx.Events().Append(ctx, &model.StatusEvent{
			EntityType: auditType,
			EntityID:   c.id,
			FromStatus: c.from,
			ToStatus:   c.to,
			ActorUID:   c.actor.UID,
			ActorRole:  string(c.actor.Role),
			Note:       c.note,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (lc *lifecycle) afterCommit(ctx context.Context, m *mutation) {
	for _, c := range m.changes {
		lc.Logger.Info("status changed",
			"entity", c.entity,
			c.entity+"_id", c.id,
			"code", c.code,
			"from", c.from,
			"to", c.to,
			"actor", c.actor.UID,
		)
		lc.Metrics.RecordTransition(ctx, c.entity, c.from, c.to)
		ev := events.Event{
			ID:         uuid.NewString(),
			Type:       c.eventType,
			Entity:     c.entity,
			EntityID:   c.id,
			Code:       c.code,
			From:       c.from,
			To:         c.to,
			ActorUID:   c.actor.UID,
			ActorRole:  string(c.actor.Role),
			OccurredAt: lc.Now().UTC(),
		}
		if err := lc.Events.Publish(ctx, ev); err != nil {
			lc.Logger.Error("failed to publish event", "error", err, "type", ev.Type, "entity_id", ev.EntityID)
		}
	}
	for _, n := range m.notices {
		lc.Notifier.Notify(ctx, n)
	}
}

func ptr[T any](v T) *T { return &v }

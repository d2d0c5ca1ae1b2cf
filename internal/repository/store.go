package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"gorm.io/gorm"
)

var (
	ErrDBNotReady    = errors.New("database not initialized")
	ErrNotFound      = errors.New("record not found")
	ErrStaleVersion  = errors.New("stale version")
	ErrDuplicateCode = errors.New("duplicate code")
)

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Listings() ListingRepository
	Addresses() AddressRepository
	Orders() OrderRepository
	Swaps() SwapRepository
	Events() StatusEventRepository
	Stats() UserStatsRepository
	Notifications() NotificationRepository
	// Transaction runs fn against a Store bound to a single database
	// transaction. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	ptr atomic.Pointer[gorm.DB]
}

// NewStore accepts a nil db; SetDB can attach the connection later.
func NewStore(db *gorm.DB) *gormStore {
	s := &gormStore{}
	if db != nil {
		s.ptr.Store(db)
	}
	return s
}

func (s *gormStore) SetDB(db *gorm.DB) {
	s.ptr.Store(db)
}

func (s *gormStore) Ready() bool {
	return s.ptr.Load() != nil
}

func (s *gormStore) conn() base { return base{db: s.ptr.Load()} }

func (s *gormStore) Listings() ListingRepository           { return &listingRepository{s.conn()} }
func (s *gormStore) Addresses() AddressRepository          { return &addressRepository{s.conn()} }
func (s *gormStore) Orders() OrderRepository               { return &orderRepository{s.conn()} }
func (s *gormStore) Swaps() SwapRepository                 { return &swapRepository{s.conn()} }
func (s *gormStore) Events() StatusEventRepository         { return &statusEventRepository{s.conn()} }
func (s *gormStore) Stats() UserStatsRepository            { return &userStatsRepository{s.conn()} }
func (s *gormStore) Notifications() NotificationRepository { return &notificationRepository{s.conn()} }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	db := s.ptr.Load()
	if db == nil {
		return ErrDBNotReady
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

type base struct {
	db *gorm.DB
}

func (b base) session(ctx context.Context) (*gorm.DB, error) {
	if b.db == nil {
		return nil, ErrDBNotReady
	}
	return b.db.WithContext(ctx), nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateCode
	}
	return err
}

// Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// StatusCount is one row of a GROUP BY status aggregate.
type StatusCount struct {
	Status string
	Count  int64
	Amount int64
}

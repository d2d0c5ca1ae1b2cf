package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shinyyama/closet-market/internal/events"
	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) to(uid string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []string
	for _, s := range n.sent {
		if s.UserUID == uid {
			types = append(types, s.Type)
		}
	}
	return types
}

type fixture struct {
	db     *memDB
	store  repository.Store
	clock  *testClock
	events *recordingPublisher
	notes  *recordingNotifier
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		db:     db,
		store:  db.Store(),
		clock:  &testClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		events: &recordingPublisher{},
		notes:  &recordingNotifier{},
	}
	f.deps = Deps{
		Events:   f.events,
		Notifier: f.notes,
		Now:      f.clock.Now,
	}
	return f
}

// addListing stores an active sell listing priced 500000 in Hà Nội; mut
// adjusts it before insert.
func (f *fixture) addListing(t *testing.T, seller string, mut func(l *model.Listing)) model.Listing {
	t.Helper()
	l := model.Listing{
		SellerUID:      seller,
		ItemID:         100,
		Title:          "Vintage denim jacket",
		ListingType:    model.ListingTypeSell,
		SellingPrice:   ptr(int64(500000)),
		Condition:      model.ConditionGood,
		Status:         model.ListingStatusActive,
		OriginProvince: "Hà Nội",
		OriginDistrict: "Ba Đình",
	}
	if mut != nil {
		mut(&l)
	}
	if err := f.store.Listings().Create(context.Background(), &l); err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}

func (f *fixture) addAddress(t *testing.T, uid, province string, isDefault bool) model.Address {
	t.Helper()
	a := model.Address{
		UserUID:   uid,
		FullName:  "Nguyen Van A",
		Phone:     "0912345678",
		Province:  model.Division{Code: "79", Name: province},
		District:  model.Division{Name: "Quận 1"},
		Ward:      model.Division{Name: "Bến Nghé"},
		Street:    "12 Lê Lợi",
		IsDefault: isDefault,
	}
	if err := f.store.Addresses().Create(context.Background(), &a); err != nil {
		t.Fatalf("create address: %v", err)
	}
	return a
}

package service

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shinyyama/closet-market/internal/model"
	"github.com/shinyyama/closet-market/internal/repository"
)

// memDB is an in-memory stand-in for the gorm store. Transactions are
// serialized and roll back to a snapshot on error.
type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *memData
	// staleSaves makes the next n Save calls lose their version race.
	staleSaves int
}

type favKey struct {
	uid string
	id  uint64
}

type memData struct {
	nextID        uint64
	listings      map[uint64]model.Listing
	favorites     map[favKey]bool
	addresses     map[uint64]model.Address
	orders        map[uint64]model.Order
	swaps         map[uint64]model.SwapRequest
	events        []model.StatusEvent
	stats         map[string]model.UserStats
	notifications []model.Notification
}

func newMemDB() *memDB {
	return &memDB{data: &memData{
		listings:  map[uint64]model.Listing{},
		favorites: map[favKey]bool{},
		addresses: map[uint64]model.Address{},
		orders:    map[uint64]model.Order{},
		swaps:     map[uint64]model.SwapRequest{},
		stats:     map[string]model.UserStats{},
	}}
}

func (d *memData) clone() *memData {
	return &memData{
		nextID:        d.nextID,
		listings:      maps.Clone(d.listings),
		favorites:     maps.Clone(d.favorites),
		addresses:     maps.Clone(d.addresses),
		orders:        maps.Clone(d.orders),
		swaps:         maps.Clone(d.swaps),
		events:        slices.Clone(d.events),
		stats:         maps.Clone(d.stats),
		notifications: slices.Clone(d.notifications),
	}
}

func (d *memData) id() uint64 {
	d.nextID++
	return d.nextID
}

func (m *memDB) Store() repository.Store { return &memStore{db: m} }

// with runs fn under the data lock.
func (m *memDB) with(fn func(d *memData)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.data)
}

func (m *memDB) order(id uint64) model.Order {
	var o model.Order
	m.with(func(d *memData) { o = d.orders[id] })
	return o
}

func (m *memDB) swap(id uint64) model.SwapRequest {
	var s model.SwapRequest
	m.with(func(d *memData) { s = d.swaps[id] })
	return s
}

func (m *memDB) listing(id uint64) model.Listing {
	var l model.Listing
	m.with(func(d *memData) { l = d.listings[id] })
	return l
}

func (m *memDB) userStats(uid string) model.UserStats {
	var st model.UserStats
	m.with(func(d *memData) { st = d.stats[uid] })
	return st
}

func (m *memDB) eventsFor(entityType string, id uint64) []model.StatusEvent {
	var out []model.StatusEvent
	m.with(func(d *memData) {
		for _, e := range d.events {
			if e.EntityType == entityType && e.EntityID == id {
				out = append(out, e)
			}
		}
	})
	return out
}

type memStore struct {
	db *memDB
	tx bool
}

func (s *memStore) Listings() repository.ListingRepository           { return memListings{s.db} }
func (s *memStore) Addresses() repository.AddressRepository          { return memAddresses{s.db} }
func (s *memStore) Orders() repository.OrderRepository               { return memOrders{s.db} }
func (s *memStore) Swaps() repository.SwapRepository                 { return memSwaps{s.db} }
func (s *memStore) Events() repository.StatusEventRepository         { return memEvents{s.db} }
func (s *memStore) Stats() repository.UserStatsRepository            { return memStats{s.db} }
func (s *memStore) Notifications() repository.NotificationRepository { return memNotifications{s.db} }

func (s *memStore) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	if s.tx {
		return fn(s)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.Lock()
	snapshot := s.db.data.clone()
	s.db.mu.Unlock()

	if err := fn(&memStore{db: s.db, tx: true}); err != nil {
		s.db.mu.Lock()
		s.db.data = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func paginate[T any](list []T, p repository.Page) []T {
	limit := p.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := max(p.Page, 1)
	start := min((page-1)*limit, len(list))
	end := min(start+limit, len(list))
	return list[start:end]
}

type memListings struct{ db *memDB }

func (r memListings) Create(_ context.Context, l *model.Listing) error {
	r.db.with(func(d *memData) {
		l.ID = d.id()
		d.listings[l.ID] = *l
	})
	return nil
}

func (r memListings) FindByID(_ context.Context, id uint64) (*model.Listing, error) {
	var (
		l  model.Listing
		ok bool
	)
	r.db.with(func(d *memData) { l, ok = d.listings[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r memListings) FindForUpdate(_ context.Context, ids ...uint64) ([]model.Listing, error) {
	var (
		out     []model.Listing
		missing bool
	)
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	r.db.with(func(d *memData) {
		for _, id := range sorted {
			l, ok := d.listings[id]
			if !ok {
				missing = true
				return
			}
			out = append(out, l)
		}
	})
	if missing {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r memListings) List(_ context.Context, f repository.ListingFilter) ([]model.Listing, int64, error) {
	status := f.Status
	if status == "" {
		status = model.ListingStatusActive
	}
	var out []model.Listing
	r.db.with(func(d *memData) {
		for _, l := range d.listings {
			switch {
			case l.Status != status:
			case f.Type != "" && l.ListingType != f.Type && l.ListingType != model.ListingTypeBoth:
			case f.SellerUID != "" && l.SellerUID != f.SellerUID:
			case f.Query != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(f.Query)):
			default:
				out = append(out, l)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r memListings) UpdateStatus(_ context.Context, id uint64, from []model.ListingStatus, to model.ListingStatus, at time.Time) (bool, error) {
	var ok bool
	r.db.with(func(d *memData) {
		l, found := d.listings[id]
		if !found || !slices.Contains(from, l.Status) {
			return
		}
		l.Status = to
		if to == model.ListingStatusSold {
			l.SoldAt = &at
		}
		d.listings[id] = l
		ok = true
	})
	return ok, nil
}

func (r memListings) IncrementViews(_ context.Context, id uint64) error {
	r.db.with(func(d *memData) {
		l := d.listings[id]
		l.ViewCount++
		d.listings[id] = l
	})
	return nil
}

func (r memListings) AddFavorite(_ context.Context, uid string, id uint64) (bool, error) {
	var added bool
	r.db.with(func(d *memData) {
		k := favKey{uid, id}
		if d.favorites[k] {
			return
		}
		d.favorites[k] = true
		l := d.listings[id]
		l.FavoriteCount++
		d.listings[id] = l
		added = true
	})
	return added, nil
}

func (r memListings) RemoveFavorite(_ context.Context, uid string, id uint64) (bool, error) {
	var removed bool
	r.db.with(func(d *memData) {
		k := favKey{uid, id}
		if !d.favorites[k] {
			return
		}
		delete(d.favorites, k)
		l := d.listings[id]
		l.FavoriteCount--
		d.listings[id] = l
		removed = true
	})
	return removed, nil
}

func (r memListings) IsFavorite(_ context.Context, uid string, id uint64) (bool, error) {
	var fav bool
	r.db.with(func(d *memData) { fav = d.favorites[favKey{uid, id}] })
	return fav, nil
}

func (r memListings) Boost(_ context.Context, id uint64, at time.Time) error {
	r.db.with(func(d *memData) {
		l := d.listings[id]
		l.BoostCount++
		l.LastBoostedAt = &at
		d.listings[id] = l
	})
	return nil
}

type memAddresses struct{ db *memDB }

func (r memAddresses) Create(_ context.Context, a *model.Address) error {
	r.db.with(func(d *memData) {
		a.ID = d.id()
		d.addresses[a.ID] = *a
	})
	return nil
}

func (r memAddresses) FindByID(_ context.Context, id uint64, uid string) (*model.Address, error) {
	var (
		a  model.Address
		ok bool
	)
	r.db.with(func(d *memData) { a, ok = d.addresses[id] })
	if !ok || a.UserUID != uid {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memAddresses) FindDefault(_ context.Context, uid string) (*model.Address, error) {
	var found *model.Address
	r.db.with(func(d *memData) {
		for _, a := range d.addresses {
			if a.UserUID == uid && a.IsDefault {
				found = &a
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memAddresses) ListByUser(_ context.Context, uid string) ([]model.Address, error) {
	var out []model.Address
	r.db.with(func(d *memData) {
		for _, a := range d.addresses {
			if a.UserUID == uid {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r memAddresses) CountByUser(ctx context.Context, uid string) (int64, error) {
	list, _ := r.ListByUser(ctx, uid)
	return int64(len(list)), nil
}

func (r memAddresses) SetDefault(_ context.Context, id uint64, uid string) error {
	var err error
	r.db.with(func(d *memData) {
		target, ok := d.addresses[id]
		if !ok || target.UserUID != uid {
			err = repository.ErrNotFound
			return
		}
		for k, a := range d.addresses {
			if a.UserUID == uid {
				a.IsDefault = k == id
				d.addresses[k] = a
			}
		}
	})
	return err
}

type memOrders struct{ db *memDB }

func (r memOrders) Create(_ context.Context, o *model.Order) error {
	var err error
	r.db.with(func(d *memData) {
		for _, other := range d.orders {
			if other.Code == o.Code {
				err = repository.ErrDuplicateCode
				return
			}
		}
		o.ID = d.id()
		d.orders[o.ID] = *o
	})
	return err
}

func (r memOrders) FindByID(_ context.Context, id uint64) (*model.Order, error) {
	var (
		o  model.Order
		ok bool
	)
	r.db.with(func(d *memData) { o, ok = d.orders[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r memOrders) FindByCode(_ context.Context, code string) (*model.Order, error) {
	var found *model.Order
	r.db.with(func(d *memData) {
		for _, o := range d.orders {
			if o.Code == code {
				found = &o
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memOrders) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	return err == nil, nil
}

func (r memOrders) Save(_ context.Context, o *model.Order) error {
	var err error
	r.db.with(func(d *memData) {
		if r.db.staleSaves > 0 {
			r.db.staleSaves--
			err = repository.ErrStaleVersion
			return
		}
		cur, ok := d.orders[o.ID]
		if !ok || cur.Version != o.Version {
			err = repository.ErrStaleVersion
			return
		}
		o.Version++
		d.orders[o.ID] = *o
	})
	return err
}

func (r memOrders) HasOpenForListing(_ context.Context, listingID uint64) (bool, error) {
	var open bool
	r.db.with(func(d *memData) {
		for _, o := range d.orders {
			if o.ListingID == listingID && !o.Status.IsTerminal() {
				open = true
				return
			}
		}
	})
	return open, nil
}

func (r memOrders) matching(uid string, role repository.OrderRole) []model.Order {
	var out []model.Order
	r.db.with(func(d *memData) {
		for _, o := range d.orders {
			switch role {
			case repository.OrderRoleBuyer:
				if o.BuyerUID != uid {
					continue
				}
			case repository.OrderRoleSeller:
				if o.SellerUID != uid {
					continue
				}
			default:
				if !o.IsParticipant(uid) {
					continue
				}
			}
			out = append(out, o)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memOrders) List(_ context.Context, f repository.OrderFilter) ([]model.Order, int64, error) {
	out := slices.DeleteFunc(r.matching(f.UserUID, f.Role), func(o model.Order) bool {
		return f.Status != "" && o.Status != f.Status
	})
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r memOrders) ListAllBySeller(_ context.Context, uid string) ([]model.Order, error) {
	return r.matching(uid, repository.OrderRoleSeller), nil
}

func (r memOrders) CountByStatus(_ context.Context, uid string, role repository.OrderRole) ([]repository.StatusCount, error) {
	byStatus := map[string]*repository.StatusCount{}
	for _, o := range r.matching(uid, role) {
		c, ok := byStatus[string(o.Status)]
		if !ok {
			c = &repository.StatusCount{Status: string(o.Status)}
			byStatus[string(o.Status)] = c
		}
		c.Count++
		c.Amount += o.ItemPrice
	}
	var out []repository.StatusCount
	for _, c := range byStatus {
		out = append(out, *c)
	}
	return out, nil
}

type memSwaps struct{ db *memDB }

func (r memSwaps) Create(_ context.Context, s *model.SwapRequest) error {
	var err error
	r.db.with(func(d *memData) {
		for _, other := range d.swaps {
			if other.Code == s.Code {
				err = repository.ErrDuplicateCode
				return
			}
		}
		s.ID = d.id()
		d.swaps[s.ID] = *s
	})
	return err
}

func (r memSwaps) FindByID(_ context.Context, id uint64) (*model.SwapRequest, error) {
	var (
		s  model.SwapRequest
		ok bool
	)
	r.db.with(func(d *memData) { s, ok = d.swaps[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r memSwaps) CodeExists(_ context.Context, code string) (bool, error) {
	var exists bool
	r.db.with(func(d *memData) {
		for _, s := range d.swaps {
			if s.Code == code {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r memSwaps) Save(_ context.Context, s *model.SwapRequest) error {
	var err error
	r.db.with(func(d *memData) {
		if r.db.staleSaves > 0 {
			r.db.staleSaves--
			err = repository.ErrStaleVersion
			return
		}
		cur, ok := d.swaps[s.ID]
		if !ok || cur.Version != s.Version {
			err = repository.ErrStaleVersion
			return
		}
		s.Version++
		d.swaps[s.ID] = *s
	})
	return err
}

func (r memSwaps) HasActiveForListings(_ context.Context, ids []uint64, excludeID uint64, now time.Time) (bool, error) {
	var busy bool
	r.db.with(func(d *memData) {
		for _, s := range d.swaps {
			if s.ID == excludeID || !slices.Contains(model.ActiveSwapStatuses, s.Status) || s.Overdue(now) {
				continue
			}
			if slices.Contains(ids, s.RequesterListingID) || slices.Contains(ids, s.ReceiverListingID) {
				busy = true
				return
			}
		}
	})
	return busy, nil
}

func (r memSwaps) matching(uid string, role repository.SwapRole) []model.SwapRequest {
	var out []model.SwapRequest
	r.db.with(func(d *memData) {
		for _, s := range d.swaps {
			switch role {
			case repository.SwapRoleRequester:
				if s.RequesterUID != uid {
					continue
				}
			case repository.SwapRoleReceiver:
				if s.ReceiverUID != uid {
					continue
				}
			default:
				if _, ok := s.PartyOf(uid); !ok {
					continue
				}
			}
			out = append(out, s)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memSwaps) List(_ context.Context, f repository.SwapFilter) ([]model.SwapRequest, int64, error) {
	out := slices.DeleteFunc(r.matching(f.UserUID, f.Role), func(s model.SwapRequest) bool {
		return f.Status != "" && s.Status != f.Status
	})
	return paginate(out, f.Page), int64(len(out)), nil
}

func (r memSwaps) ListOverdue(_ context.Context, now time.Time, limit int) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	r.db.with(func(d *memData) {
		for _, s := range d.swaps {
			if s.Overdue(now) {
				out = append(out, s)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memSwaps) CountByStatus(_ context.Context, uid string) ([]repository.StatusCount, error) {
	byStatus := map[model.SwapStatus]int64{}
	for _, s := range r.matching(uid, repository.SwapRoleAny) {
		byStatus[s.Status]++
	}
	var out []repository.StatusCount
	for st, n := range byStatus {
		out = append(out, repository.StatusCount{Status: string(st), Count: n})
	}
	return out, nil
}

type memEvents struct{ db *memDB }

func (r memEvents) Append(_ context.Context, e *model.StatusEvent) error {
	r.db.with(func(d *memData) {
		e.ID = d.id()
		d.events = append(d.events, *e)
	})
	return nil
}

func (r memEvents) ListByEntity(_ context.Context, id uint64, types ...string) ([]model.StatusEvent, error) {
	var out []model.StatusEvent
	r.db.with(func(d *memData) {
		for _, e := range d.events {
			if e.EntityID == id && slices.Contains(types, e.EntityType) {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

type memStats struct{ db *memDB }

func (r memStats) Increment(_ context.Context, uid string, counter repository.StatsCounter) error {
	r.db.with(func(d *memData) {
		st := d.stats[uid]
		st.UID = uid
		switch counter {
		case repository.CounterSales:
			st.TotalSales++
		case repository.CounterPurchases:
			st.TotalPurchases++
		case repository.CounterSwaps:
			st.TotalSwaps++
		}
		d.stats[uid] = st
	})
	return nil
}

func (r memStats) AddRating(_ context.Context, uid string, rating int) error {
	r.db.with(func(d *memData) {
		st := d.stats[uid]
		st.UID = uid
		st.RatingSum += int64(rating)
		st.RatingCount++
		d.stats[uid] = st
	})
	return nil
}

func (r memStats) Get(_ context.Context, uid string) (*model.UserStats, error) {
	var st model.UserStats
	r.db.with(func(d *memData) { st = d.stats[uid] })
	st.UID = uid
	return &st, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(_ context.Context, n *model.Notification) error {
	r.db.with(func(d *memData) {
		n.ID = d.id()
		d.notifications = append(d.notifications, *n)
	})
	return nil
}

func (r memNotifications) ListByUser(_ context.Context, uid string, unreadOnly bool, limit int) ([]model.Notification, error) {
	var out []model.Notification
	r.db.with(func(d *memData) {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			n := d.notifications[i]
			if n.UserUID == uid && (!unreadOnly || n.ReadAt == nil) {
				out = append(out, n)
			}
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memNotifications) MarkAllRead(_ context.Context, uid string) error {
	now := time.Now()
	r.db.with(func(d *memData) {
		for i := range d.notifications {
			if d.notifications[i].UserUID == uid && d.notifications[i].ReadAt == nil {
				d.notifications[i].ReadAt = &now
			}
		}
	})
	return nil
}

func (r memNotifications) MarkRead(_ context.Context, uid string, id uint64) error {
	now := time.Now()
	r.db.with(func(d *memData) {
		for i := range d.notifications {
			if d.notifications[i].ID == id && d.notifications[i].UserUID == uid && d.notifications[i].ReadAt == nil {
				d.notifications[i].ReadAt = &now
			}
		}
	})
	return nil
}

func (r memNotifications) CountUnread(ctx context.Context, uid string) (int64, error) {
	list, _ := r.ListByUser(ctx, uid, true, 0)
	return int64(len(list)), nil
}

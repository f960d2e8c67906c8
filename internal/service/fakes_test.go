package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ticketing/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type inTxKey struct{}

// memStore backs every fake store. A transaction holds mu until it ends,
// which serialises writers the way row locks do, and restores a snapshot
// when fn fails.
type memStore struct {
	mu sync.Mutex

	ticketTypes map[int64]models.TicketType
	tickets     []models.Ticket
	events      map[int64]models.Event
	states      map[int64]models.State
	countries   map[int64]models.Country
	users       map[uuid.UUID]models.User
	nextID      int64

	// fault injection
	lockConflicts int
	updateErr     error
	listErr       error

	trail []string
}

func newMemStore() *memStore {
	return &memStore{
		ticketTypes: map[int64]models.TicketType{},
		events:      map[int64]models.Event{},
		states:      map[int64]models.State{},
		countries:   map[int64]models.Country{},
		users:       map[uuid.UUID]models.User{},
		nextID:      100,
	}
}

func inTx(ctx context.Context) bool {
	return ctx.Value(inTxKey{}) != nil
}

func (m *memStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

type snapshot struct {
	ticketTypes map[int64]models.TicketType
	tickets     []models.Ticket
	events      map[int64]models.Event
	states      map[int64]models.State
	nextID      int64
}

func (m *memStore) snapshot() snapshot {
	s := snapshot{
		ticketTypes: make(map[int64]models.TicketType, len(m.ticketTypes)),
		tickets:     append([]models.Ticket(nil), m.tickets...),
		events:      make(map[int64]models.Event, len(m.events)),
		states:      make(map[int64]models.State, len(m.states)),
		nextID:      m.nextID,
	}
	for k, v := range m.ticketTypes {
		s.ticketTypes[k] = v
	}
	for k, v := range m.events {
		s.events[k] = v
	}
	for k, v := range m.states {
		s.states[k] = v
	}
	return s
}

func (m *memStore) restore(s snapshot) {
	m.ticketTypes = s.ticketTypes
	m.tickets = s.tickets
	m.events = s.events
	m.states = s.states
	m.nextID = s.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		m.restore(snap)
		m.trail = append(m.trail, "rollback")
		return err
	}
	m.trail = append(m.trail, "commit")
	return nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Trail returns the commit/rollback/invalidate history
func (m *memStore) Trail() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.trail...)
}

type fakeTicketTypes struct{ *memStore }

func (f fakeTicketTypes) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	defer f.lock(ctx)()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return nil, nil
	}
	return &tt, nil
}

func (f fakeTicketTypes) GetByIDForUpdate(ctx context.Context, id int64) (*models.TicketType, error) {
	if f.lockConflicts > 0 {
		f.lockConflicts--
		return nil, &pq.Error{Code: "40P01", Message: "deadlock detected"}
	}
	return f.GetByID(ctx, id)
}

func (f fakeTicketTypes) ListByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	defer f.lock(ctx)()
	out := []models.TicketType{}
	for _, tt := range f.ticketTypes {
		if tt.EventID == eventID {
			out = append(out, tt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeTicketTypes) InsertMany(ctx context.Context, types []*models.TicketType) error {
	defer f.lock(ctx)()
	for _, tt := range types {
		tt.ID = f.id()
		f.ticketTypes[tt.ID] = *tt
	}
	return nil
}

func (f fakeTicketTypes) Update(ctx context.Context, tt *models.TicketType) error {
	defer f.lock(ctx)()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.ticketTypes[tt.ID] = *tt
	return nil
}

func (f fakeTicketTypes) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	defer f.lock(ctx)()
	var n int64
	for _, id := range ids {
		if _, ok := f.ticketTypes[id]; ok {
			delete(f.ticketTypes, id)
			n++
		}
	}
	return n, nil
}

type fakeTickets struct{ *memStore }

func (f fakeTickets) attach(t models.Ticket, inc models.TicketIncludes) models.Ticket {
	if inc.TicketType || inc.Event {
		tt := f.ticketTypes[t.TicketTypeID]
		if inc.Event {
			ev := f.events[tt.EventID]
			tt.Event = &ev
		}
		t.TicketType = &tt
	}
	if inc.User {
		u := f.users[t.UserID]
		t.User = &u
	}
	return t
}

func (f fakeTickets) GetByID(ctx context.Context, id uuid.UUID, inc models.TicketIncludes) (*models.Ticket, error) {
	defer f.lock(ctx)()
	for _, t := range f.tickets {
		if t.TicketID == id {
			out := f.attach(t, inc)
			return &out, nil
		}
	}
	return nil, nil
}

func (f fakeTickets) ListByUser(ctx context.Context, userID uuid.UUID, inc models.TicketIncludes) ([]models.Ticket, error) {
	defer f.lock(ctx)()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Ticket{}
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, f.attach(t, inc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseTime.After(out[j].PurchaseTime) })
	return out, nil
}

func (f fakeTickets) List(ctx context.Context, inc models.TicketIncludes) ([]models.Ticket, error) {
	defer f.lock(ctx)()
	out := []models.Ticket{}
	for _, t := range f.tickets {
		out = append(out, f.attach(t, inc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseTime.After(out[j].PurchaseTime) })
	return out, nil
}

func (f fakeTickets) InsertMany(ctx context.Context, tickets []models.Ticket) error {
	defer f.lock(ctx)()
	f.tickets = append(f.tickets, tickets...)
	return nil
}

func (m *memStore) ticketCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

func (m *memStore) quantity(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketTypes[id].QuantityAvailable
}

type fakeEvents struct{ *memStore }

func (f fakeEvents) Insert(ctx context.Context, event *models.Event) error {
	defer f.lock(ctx)()
	event.ID = f.id()
	stored := *event
	stored.TicketTypes, stored.Creator = nil, nil
	f.events[event.ID] = stored
	return nil
}

func (f fakeEvents) GetByID(ctx context.Context, id int64, inc models.EventIncludes) (*models.Event, error) {
	e, err := f.GetByIDForUpdate(ctx, id)
	if err != nil || e == nil {
		return e, err
	}
	if inc.TicketTypes {
		e.TicketTypes, _ = fakeTicketTypes{f.memStore}.ListByEvent(ctx, id)
	}
	defer f.lock(ctx)()
	if inc.Creator {
		if u, ok := f.users[e.CreatedBy]; ok {
			e.Creator = &u
		}
	}
	if inc.Country {
		if c, ok := f.countries[e.CountryID]; ok {
			e.Country = &c
		}
	}
	if inc.State {
		if s, ok := f.states[e.StateID]; ok {
			e.State = &s
		}
	}
	return e, nil
}

func (f fakeEvents) GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error) {
	defer f.lock(ctx)()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f fakeEvents) List(ctx context.Context, inc models.EventIncludes) ([]models.Event, error) {
	unlock := f.lock(ctx)
	ids := make([]int64, 0, len(f.events))
	for id := range f.events {
		ids = append(ids, id)
	}
	unlock()

	out := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		e, err := f.GetByID(ctx, id, inc)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f fakeEvents) Update(ctx context.Context, event *models.Event) error {
	defer f.lock(ctx)()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.events[event.ID]; !ok {
		return errors.New("expected 1 affected rows, got 0")
	}
	stored := *event
	stored.TicketTypes, stored.Creator, stored.Country, stored.State = nil, nil, nil, nil
	f.events[event.ID] = stored
	return nil
}

// Delete cascades to ticket types and their tickets like the schema does
func (f fakeEvents) Delete(ctx context.Context, id int64) error {
	defer f.lock(ctx)()
	if _, ok := f.events[id]; !ok {
		return errors.New("expected 1 affected rows, got 0")
	}
	delete(f.events, id)
	removed := map[int64]bool{}
	for ttID, tt := range f.ticketTypes {
		if tt.EventID == id {
			removed[ttID] = true
			delete(f.ticketTypes, ttID)
		}
	}
	kept := f.tickets[:0]
	for _, t := range f.tickets {
		if !removed[t.TicketTypeID] {
			kept = append(kept, t)
		}
	}
	f.tickets = kept
	return nil
}

type fakeStates struct{ *memStore }

func (f fakeStates) withCountry(s models.State, inc models.StateIncludes) models.State {
	if inc.Country {
		if c, ok := f.countries[s.CountryID]; ok {
			s.Country = &c
		}
	}
	return s
}

func (f fakeStates) GetByID(ctx context.Context, id int64, inc models.StateIncludes) (*models.State, error) {
	defer f.lock(ctx)()
	s, ok := f.states[id]
	if !ok {
		return nil, nil
	}
	s = f.withCountry(s, inc)
	return &s, nil
}

func (f fakeStates) GetByIDs(ctx context.Context, ids []int64) ([]models.State, error) {
	defer f.lock(ctx)()
	out := []models.State{}
	for _, id := range ids {
		if s, ok := f.states[id]; ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeStates) ListByCountry(ctx context.Context, countryID int64, inc models.StateIncludes) ([]models.State, error) {
	defer f.lock(ctx)()
	out := []models.State{}
	for _, s := range f.states {
		if s.CountryID == countryID {
			out = append(out, f.withCountry(s, inc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeStates) ExistsByName(ctx context.Context, countryID int64, name string, excludeID int64) (bool, error) {
	defer f.lock(ctx)()
	for _, s := range f.states {
		if s.CountryID == countryID && s.Name == name && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeStates) InsertMany(ctx context.Context, states []*models.State) error {
	defer f.lock(ctx)()
	for _, s := range states {
		s.ID = f.id()
		stored := *s
		stored.Country = nil
		f.states[s.ID] = stored
	}
	return nil
}

func (f fakeStates) Update(ctx context.Context, s *models.State) error {
	defer f.lock(ctx)()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored := *s
	stored.Country = nil
	f.states[s.ID] = stored
	return nil
}

func (f fakeStates) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	defer f.lock(ctx)()
	var n int64
	for _, id := range ids {
		if _, ok := f.states[id]; ok {
			delete(f.states, id)
			n++
		}
	}
	return n, nil
}

type fakeCountries struct{ *memStore }

func (f fakeCountries) GetByID(ctx context.Context, id int64) (*models.Country, error) {
	defer f.lock(ctx)()
	c, ok := f.countries[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer f.lock(ctx)()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// recordingLocations wraps a real cache and notes each invalidation in the store trail
type recordingLocations struct {
	LocationCache
	store *memStore

	mu          sync.Mutex
	invalidated [][]int64
}

func (r *recordingLocations) InvalidateCountry(countryIDs ...int64) {
	r.store.mu.Lock()
	r.store.trail = append(r.store.trail, "invalidate")
	r.store.mu.Unlock()

	r.mu.Lock()
	r.invalidated = append(r.invalidated, append([]int64(nil), countryIDs...))
	r.mu.Unlock()

	r.LocationCache.InvalidateCountry(countryIDs...)
}

func (r *recordingLocations) Invalidated() [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]int64(nil), r.invalidated...)
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/repository"
	"organizer-team/backend/internal/notification"
	organizerdomain "organizer-team/backend/internal/organizer/domain"
	userdomain "organizer-team/backend/internal/user/domain"
)

// memMemberships is an in-memory repository. Transactions stage their writes until fn returns nil,
// so a failed action leaves state untouched. LockOrganizer and GetForUpdate take real locks held
// until the transaction ends; concurrent transactions only serialize where they share a lock.
type memMemberships struct {
	mu         sync.Mutex
	rows       map[string]*domain.Membership
	organizers map[string]bool
	locks      map[string]chan struct{}
	// calls records lock and count operations made inside transactions, in order.
	calls     []string
	updateErr error
}

var _ repository.Repository = (*memMemberships)(nil)

func newMemMemberships(organizerIDs ...string) *memMemberships {
	m := &memMemberships{
		rows:       map[string]*domain.Membership{},
		organizers: map[string]bool{},
		locks:      map[string]chan struct{}{},
	}
	for _, id := range organizerIDs {
		m.organizers[id] = true
	}
	return m
}

func key(organizerID, userID string) string { return organizerID + "|" + userID }

func (m *memMemberships) put(ms ...*domain.Membership) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range ms {
		m.rows[key(r.OrganizerID, r.UserID)] = r.Clone()
	}
}

func (m *memMemberships) get(organizerID, userID string) *domain.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key(organizerID, userID)].Clone()
}

func (m *memMemberships) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memMemberships) GetByOrganizerAndUser(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	return m.get(organizerID, userID), nil
}

func (m *memMemberships) ListByOrganizer(ctx context.Context, organizerID string, f repository.ListFilter) ([]*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Membership
	for _, r := range m.rows {
		if r.OrganizerID != organizerID {
			continue
		}
		if f.ActiveOnly && !r.IsActive {
			continue
		}
		if f.PendingOnly && !r.IsPending() {
			continue
		}
		if len(f.Roles) > 0 && !containsRole(f.Roles, r.Role) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func containsRole(roles []domain.Role, r domain.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func (m *memMemberships) CountActiveOwners(ctx context.Context, organizerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countOwnersLocked(organizerID, nil), nil
}

func (m *memMemberships) countOwnersLocked(organizerID string, staged map[string]*domain.Membership) int {
	n := 0
	seen := map[string]bool{}
	for k, r := range staged {
		seen[k] = true
		if r.OrganizerID == organizerID && r.IsActiveOwner() {
			n++
		}
	}
	for k, r := range m.rows {
		if !seen[k] && r.OrganizerID == organizerID && r.IsActiveOwner() {
			n++
		}
	}
	return n
}

// lockTimeout stands in for Postgres lock_timeout so a lock-order bug fails instead of hanging.
const lockTimeout = 2 * time.Second

func (m *memMemberships) lockChan(k string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.locks[k]
	if !ok {
		c = make(chan struct{}, 1)
		m.locks[k] = c
	}
	return c
}

func (m *memMemberships) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *memMemberships) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *memMemberships) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memTx{store: m, staged: map[string]*domain.Membership{}, held: map[string]chan struct{}{}}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range tx.staged {
		m.rows[k] = r
	}
	return nil
}

type memTx struct {
	store  *memMemberships
	staged map[string]*domain.Membership
	held   map[string]chan struct{}
}

// lock acquires k for the rest of the transaction. Re-locking a held key is a no-op.
func (t *memTx) lock(ctx context.Context, k string) error {
	if _, ok := t.held[k]; ok {
		return nil
	}
	c := t.store.lockChan(k)
	timer := time.NewTimer(lockTimeout)
	defer timer.Stop()
	select {
	case c <- struct{}{}:
		t.held[k] = c
		return nil
	case <-timer.C:
		return errors.New("lock timeout on " + k)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memTx) release() {
	for k, c := range t.held {
		<-c
		delete(t.held, k)
	}
}

func (t *memTx) LockOrganizer(ctx context.Context, organizerID string) (bool, error) {
	if err := t.lock(ctx, "organizer|"+organizerID); err != nil {
		return false, err
	}
	t.store.record("lock_organizer")
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.organizers[organizerID], nil
}

func (t *memTx) GetForUpdate(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	if err := t.lock(ctx, "row|"+key(organizerID, userID)); err != nil {
		return nil, err
	}
	return t.read(organizerID, userID), nil
}

func (t *memTx) Get(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	t.store.record("get " + userID)
	return t.read(organizerID, userID), nil
}

func (t *memTx) read(organizerID, userID string) *domain.Membership {
	if r, ok := t.staged[key(organizerID, userID)]; ok {
		return r.Clone()
	}
	return t.store.get(organizerID, userID)
}

func (t *memTx) CountActiveOwners(ctx context.Context, organizerID string) (int, error) {
	t.store.record("count_owners")
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.countOwnersLocked(organizerID, t.staged), nil
}

func (t *memTx) Insert(ctx context.Context, r *domain.Membership) error {
	k := key(r.OrganizerID, r.UserID)
	if t.read(r.OrganizerID, r.UserID) != nil {
		return errors.New("duplicate membership")
	}
	t.staged[k] = r.Clone()
	return nil
}

func (t *memTx) Update(ctx context.Context, r *domain.Membership) error {
	if t.store.updateErr != nil {
		return t.store.updateErr
	}
	if t.read(r.OrganizerID, r.UserID) == nil {
		return errors.New("update of missing membership")
	}
	t.staged[key(r.OrganizerID, r.UserID)] = r.Clone()
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*userdomain.User
	calls int
}

func newMemUsers(users ...*userdomain.User) *memUsers {
	u := &memUsers{byID: map[string]*userdomain.User{}}
	for _, x := range users {
		u.byID[x.ID] = x
	}
	return u
}

func (u *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.byID[id], nil
}

func (u *memUsers) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, x := range u.byID {
		if x.Email == email {
			return x, nil
		}
	}
	return nil, nil
}

func (u *memUsers) Create(ctx context.Context, x *userdomain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.byID[x.ID] = x
	return nil
}

type memOrganizers map[string]*organizerdomain.Organizer

func (o memOrganizers) GetByID(ctx context.Context, id string) (*organizerdomain.Organizer, error) {
	return o[id], nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password []byte) (string, error) {
	if len(password) == 0 {
		return "", errors.New("empty password")
	}
	return "$2a$fake", nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, e notification.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingNotifier) last() notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notification.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recordingNotifier) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

const orgID = "org-1"

var (
	t0       = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	accepted = t0.Add(-24 * time.Hour)
)

// fixture is an organizer with one user per id and no memberships.
type fixture struct {
	svc      *Service
	repo     *memMemberships
	users    *memUsers
	notifier *recordingNotifier
}

func newFixture(userIDs ...string) *fixture {
	users := newMemUsers()
	for _, id := range userIDs {
		users.byID[id] = &userdomain.User{ID: id, Email: id + "@example.com", Name: id, Status: userdomain.UserStatusActive}
	}
	repo := newMemMemberships(orgID)
	orgs := memOrganizers{orgID: {ID: orgID, Name: "Acme Events", Status: organizerdomain.OrganizerStatusActive}}
	n := &recordingNotifier{}
	svc := NewService(repo, users, orgs, fakeHasher{},
		WithNotifier(n),
		WithClock(func() time.Time { return t0 }),
	)
	return &fixture{svc: svc, repo: repo, users: users, notifier: n}
}

// member stores an active, accepted membership.
func (f *fixture) member(userID string, role domain.Role, perms ...domain.Permission) *domain.Membership {
	at := accepted
	m := &domain.Membership{
		ID:                   "m-" + userID,
		OrganizerID:          orgID,
		UserID:               userID,
		Role:                 role,
		Permissions:          domain.NewPermissionSet(perms...),
		IsActive:             true,
		JoinedAt:             accepted,
		InvitationAcceptedAt: &at,
		CreatedAt:            accepted,
		UpdatedAt:            accepted,
	}
	f.repo.put(m)
	return m
}

package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ambulance-fleet-api/internal/logger"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/queue"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.User, 0, len(f.byID))
	for _, u := range f.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeUsers) Taken(_ context.Context, email, phone, nationalID string) (bool, bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var e, p, n bool
	for _, u := range f.byID {
		e = e || u.Email == email
		p = p || u.Phone == phone
		n = n || u.NationalID == nationalID
	}
	return e, p, n, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) setRole(id string, r model.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.Role = r
	f.byID[id] = u
}

// fakeTokens mimics the promotion transaction: the conditional consume, the
// role update and the companion record all happen under one lock.
type fakeTokens struct {
	mu       sync.Mutex
	tokens   map[string]model.UpgradeToken
	users    *fakeUsers
	drivers  map[string]model.Driver
	managers map[string]bool
	failWith error
}

func newFakeTokens(users *fakeUsers, tokens ...model.UpgradeToken) *fakeTokens {
	f := &fakeTokens{
		tokens:   map[string]model.UpgradeToken{},
		users:    users,
		drivers:  map[string]model.Driver{},
		managers: map[string]bool{},
	}
	for _, t := range tokens {
		f.tokens[t.ID] = t
	}
	return f
}

func (f *fakeTokens) Create(_ context.Context, t model.UpgradeToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[t.ID] = t
	return nil
}

func (f *fakeTokens) GetByID(_ context.Context, id string) (model.UpgradeToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	if !ok {
		return model.UpgradeToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) ListUnused(_ context.Context, grant model.Role) ([]model.UpgradeToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UpgradeToken
	for _, t := range f.tokens {
		if !t.Used && t.Grant == grant {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTokens) Promote(_ context.Context, p repository.Promotion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	t := f.tokens[p.TokenID]
	if t.Used {
		return repository.ErrTokenUsed
	}
	t.Used = true
	uid := p.UserID
	t.UsedBy = &uid
	at := p.At
	t.RevokedAt = &at
	f.tokens[p.TokenID] = t

	f.users.setRole(p.UserID, p.Grant)
	switch p.Grant {
	case model.RoleDriver:
		if _, ok := f.drivers[p.UserID]; !ok {
			f.drivers[p.UserID] = *p.Driver
		}
	case model.RoleManager:
		f.managers[p.UserID] = true
	}
	return nil
}

func (f *fakeTokens) token(id string) model.UpgradeToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[id]
}

type fakeAmbulances struct {
	ids map[string]bool
}

func (f *fakeAmbulances) Create(_ context.Context, a model.Ambulance) error {
	if f.ids[a.ID] {
		return repository.ErrConflict
	}
	f.ids[a.ID] = true
	return nil
}

func (f *fakeAmbulances) GetByID(_ context.Context, id string) (model.Ambulance, error) {
	if !f.ids[id] {
		return model.Ambulance{}, repository.ErrNotFound
	}
	return model.Ambulance{ID: id}, nil
}

func (f *fakeAmbulances) Exists(_ context.Context, id string) (bool, error) { return f.ids[id], nil }

func (f *fakeAmbulances) List(_ context.Context) ([]model.Ambulance, error) { return nil, nil }

type fakeCodes struct {
	mu    sync.Mutex
	codes map[string]model.RestoreCode
}

func (f *fakeCodes) Replace(_ context.Context, c model.RestoreCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, x := range f.codes {
		if x.UserID == c.UserID {
			delete(f.codes, id)
		}
	}
	f.codes[c.ID] = c
	return nil
}

func (f *fakeCodes) Get(_ context.Context, id string) (model.RestoreCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[id]
	if !ok {
		return model.RestoreCode{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCodes) Claim(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.codes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.codes, id)
	return nil
}

func (f *fakeCodes) DeleteForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.codes {
		if c.UserID == userID {
			delete(f.codes, id)
		}
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) ofType(typ string) []queue.AuthEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []queue.AuthEvent
	for _, ev := range f.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

const testPassword = "correct-horse-battery"

func testUser(t *testing.T, id, email string, role model.Role) model.User {
	t.Helper()
	hash, err := utils.HashPassword(testPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return model.User{
		ID:           id,
		Name:         "Test " + id,
		Email:        email,
		Phone:        "1198765" + id,
		NationalID:   "1234567890" + id,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
}

type sessionFixture struct {
	svc    *SessionService
	users  *fakeUsers
	store  *repository.SessionRepo
	events *fakePublisher
	mr     *miniredis.Miniredis
}

func newSessionFixture(t *testing.T, users ...model.User) *sessionFixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	codec, err := utils.NewTokenCodec("test-secret", "HS256")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	fu := newFakeUsers(users...)
	store := repository.NewSessionRepo(rdb, "sess")
	events := &fakePublisher{}
	svc, err := NewSessionService(fu, store, codec, SessionConfig{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, events, logger.Nop())
	if err != nil {
		t.Fatalf("session service: %v", err)
	}
	return &sessionFixture{svc: svc, users: fu, store: store, events: events, mr: mr}
}

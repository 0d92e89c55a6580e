package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/config"
	"github.com/barberbook/barbershop-api/internal/handler"
	"github.com/barberbook/barbershop-api/internal/middleware"
	"github.com/barberbook/barbershop-api/internal/model"
	"github.com/barberbook/barbershop-api/internal/queue"
	"github.com/barberbook/barbershop-api/internal/repository"
	"github.com/barberbook/barbershop-api/internal/router"
	"github.com/barberbook/barbershop-api/internal/utils"
)

// ----- in-memory stores -----

type memUsers struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.byID {
		if ex.Username == u.Username {
			return repository.ErrUsernameExists
		}
		if strings.EqualFold(ex.Email, u.Email) {
			return repository.ErrEmailExists
		}
	}
	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, ex := range m.byID {
		if id == u.ID {
			continue
		}
		if ex.Username == u.Username {
			return repository.ErrUsernameExists
		}
		if strings.EqualFold(ex.Email, u.Email) {
			return repository.ErrEmailExists
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	m.byID[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) DeleteMany(_ context.Context, ids []uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

type memShops struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.Barbershop
}

func newMemShops() *memShops { return &memShops{byID: map[uint64]model.Barbershop{}} }

func (m *memShops) Create(_ context.Context, b *model.Barbershop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.byID {
		if ex.Name == b.Name {
			return repository.ErrShopNameExists
		}
	}
	m.seq++
	b.ID = m.seq
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.byID[b.ID] = *b
	return nil
}

func (m *memShops) GetByID(_ context.Context, id uint64) (model.Barbershop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return model.Barbershop{}, repository.ErrShopNotFound
	}
	return b, nil
}

func (m *memShops) List(_ context.Context) ([]model.Barbershop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Barbershop, 0, len(m.byID))
	for _, b := range m.byID {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memShops) Update(_ context.Context, b *model.Barbershop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[b.ID]; !ok {
		return repository.ErrShopNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	m.byID[b.ID] = *b
	return nil
}

func (m *memShops) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrShopNotFound
	}
	delete(m.byID, id)
	return nil
}

type memServices struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]model.Service
}

func newMemServices() *memServices { return &memServices{byID: map[uint64]model.Service{}} }

func (m *memServices) Create(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.ID = m.seq
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.byID[s.ID] = *s
	return nil
}

func (m *memServices) GetByID(_ context.Context, id uint64) (model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return model.Service{}, repository.ErrServiceNotFound
	}
	return s, nil
}

func (m *memServices) ListByShop(_ context.Context, shopID uint64) ([]model.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Service{}
	for _, s := range m.byID {
		if s.BarbershopID == shopID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memServices) Update(_ context.Context, s *model.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; !ok {
		return repository.ErrServiceNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	m.byID[s.ID] = *s
	return nil
}

func (m *memServices) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrServiceNotFound
	}
	delete(m.byID, id)
	return nil
}

type memAppts struct {
	mu    sync.Mutex
	seq   uint64
	byID  map[uint64]model.Appointment
	shops *memShops
}

func newMemAppts(shops *memShops) *memAppts {
	return &memAppts{byID: map[uint64]model.Appointment{}, shops: shops}
}

func (m *memAppts) Create(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = m.seq
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = *a
	return nil
}

func (m *memAppts) GetByID(_ context.Context, id uint64) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Appointment{}, repository.ErrAppointmentNotFound
	}
	return a, nil
}

func (m *memAppts) ListAll(_ context.Context) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Appointment, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAppts) ListByParticipant(ctx context.Context, userID uint64) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range m.byID {
		ownerID := uint64(0)
		if b, err := m.shops.GetByID(ctx, a.BarbershopID); err == nil {
			ownerID = b.OwnerID
		}
		if a.ClientID == userID || a.BarberID == userID || ownerID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAppts) UpdateStatus(_ context.Context, id uint64, status model.AppointmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return repository.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	m.byID[id] = a
	return nil
}

func (m *memAppts) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrAppointmentNotFound
	}
	delete(m.byID, id)
	return nil
}

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newMemBlacklist() *memBlacklist { return &memBlacklist{revoked: map[string]bool{}} }

func (m *memBlacklist) Revoke(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}

// ----- environment -----

type testEnv struct {
	e         *echo.Echo
	users     *memUsers
	shops     *memShops
	services  *memServices
	appts     *memAppts
	blacklist *memBlacklist
	issuer    *auth.Issuer
	booked    chan queue.AppointmentBookedEvent
}

// newTestEnv wires the full HTTP surface onto in-memory stores, mirroring
// the production wiring in cmd/server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUsers()
	shops := newMemShops()
	services := newMemServices()
	appts := newMemAppts(shops)
	bl := newMemBlacklist()

	cfg := auth.Config{Secret: "unit-test-secret", AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour}
	issuer := auth.NewIssuer(cfg)
	validator := auth.NewValidator(cfg, bl)
	verifier := auth.NewCredentialVerifier(users)

	booked := make(chan queue.AppointmentBookedEvent, 8)
	publish := func(_ context.Context, ev queue.AppointmentBookedEvent) error {
		booked <- ev
		return nil
	}

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewAuthHandler(verifier, issuer, validator, bl, users),
		handler.NewUserHandler(users, bcrypt.MinCost),
		handler.NewBarbershopHandler(shops, services),
		handler.NewAppointmentHandler(appts, shops, services, users, publish),
		validator,
		middleware.RateLimit(config.RateLimitConfig{}, nil),
		middleware.ResponseCache(config.CacheConfig{}, nil),
	)

	return &testEnv{
		e: e, users: users, shops: shops, services: services, appts: appts,
		blacklist: bl, issuer: issuer, booked: booked,
	}
}

// seedUser inserts a user directly into the store and returns it.
func (env *testEnv) seedUser(t *testing.T, username, password string, role model.Role, active bool) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	require.NoError(t, env.users.Create(context.Background(), &u))
	return u
}

// token mints an access token for the user.
func (env *testEnv) token(t *testing.T, u model.User) string {
	t.Helper()
	pair, err := env.issuer.Issue(u)
	require.NoError(t, err)
	return pair.Access
}

// do performs a JSON request against the wired server.
func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

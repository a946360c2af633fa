package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	users    map[string]*User
	sessions int
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, userAgent string) error {
	f.sessions++
	return nil
}

func newTestHandler(t *testing.T, repo Repository) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("test-csrf-secret")
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewHandler(NewService(repo), sessions, csrf, logger), sessions
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// sessionMiddleware mirrors the app middleware enough for handler tests:
// load, stash in context, commit on write.
func sessionMiddleware(sm *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			if err != nil {
				http.Error(w, "session", http.StatusInternalServerError)
				return
			}
			ctx := shared.ContextWithSession(r.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r.WithContext(ctx))
			_ = sm.Commit(ctx, w, sess)
			for k, vals := range rec.Header() {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	}
}

func testRouter(h *Handler, sm *shared.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMiddleware(sm))
	r.Route("/auth", func(r chi.Router) {
		r.Use(h.ResolveIdentity)
		h.Mount(r)
	})
	return r
}

func seedUser(t *testing.T, password string) *fakeRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeRepo{users: map[string]*User{
		"owner@example.com": {
			ID:           1,
			Email:        "owner@example.com",
			Name:         "Owner",
			PasswordHash: string(hash),
			Role:         "admin",
			IsActive:     true,
		},
	}}
}

func TestLoginSuccess(t *testing.T) {
	repo := seedUser(t, "correct horse")
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	body := `{"email":"owner@example.com","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID    int64  `json:"user_id"`
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.UserID)
	require.NotEmpty(t, resp.CSRFToken)
	require.Equal(t, 1, repo.sessions)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "test_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := seedUser(t, "correct horse")
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	body := `{"email":"owner@example.com","password":"battery staple"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, repo.sessions)
}

func TestLoginInactiveUser(t *testing.T) {
	repo := seedUser(t, "correct horse")
	repo.users["owner@example.com"].IsActive = false
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	body := `{"email":"owner@example.com","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	repo := seedUser(t, "correct horse")
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeRequiresLogin(t *testing.T) {
	repo := seedUser(t, "correct horse")
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeAfterLogin(t *testing.T) {
	repo := seedUser(t, "correct horse")
	h, sm := newTestHandler(t, repo)
	router := testRouter(h, sm)

	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"owner@example.com","password":"correct horse"}`))
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, login)
	require.Equal(t, http.StatusOK, loginRec.Code)
	cookies := loginRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		UserID  int64 `json:"user_id"`
		OwnerID int64 `json:"owner_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.UserID)
	// A root account with no owner set owns itself.
	require.Equal(t, int64(1), resp.OwnerID)
}

func TestResolveIdentityOwnerFallback(t *testing.T) {
	repo := seedUser(t, "pw-is-long-enough")
	repo.users["staff@example.com"] = &User{
		ID:       7,
		Email:    "staff@example.com",
		OwnerID:  1,
		IsActive: true,
	}
	svc := NewService(repo)

	ident, err := svc.ResolveIdentity(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), ident.UserID)
	require.Equal(t, int64(1), ident.OwnerID)

	ident, err = svc.ResolveIdentity(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), ident.OwnerID)
}

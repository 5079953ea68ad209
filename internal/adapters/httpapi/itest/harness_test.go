package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus-events/eventhub-api/internal/adapters/httpapi"
	"github.com/campus-events/eventhub-api/internal/adapters/localidp"
	memclock "github.com/campus-events/eventhub-api/internal/adapters/memory/clock"
	memdocstore "github.com/campus-events/eventhub-api/internal/adapters/memory/docstore"
	memidempotency "github.com/campus-events/eventhub-api/internal/adapters/memory/idempotency"
	mongodocstore "github.com/campus-events/eventhub-api/internal/adapters/mongo/docstore"
	mongo_testutil "github.com/campus-events/eventhub-api/internal/adapters/mongo/testutil"
	pgdocstore "github.com/campus-events/eventhub-api/internal/adapters/postgres/docstore"
	pgidempotency "github.com/campus-events/eventhub-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/campus-events/eventhub-api/internal/adapters/postgres/testutil"
	"github.com/campus-events/eventhub-api/internal/app/admin"
	"github.com/campus-events/eventhub-api/internal/app/clubs"
	"github.com/campus-events/eventhub-api/internal/app/events"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/domain"
	docstoreport "github.com/campus-events/eventhub-api/internal/ports/out/docstore"
	idempotencyport "github.com/campus-events/eventhub-api/internal/ports/out/idempotency"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendMongo    backend = "mongo"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "mongo":
		return []backend{backendMongo}
	case "all":
		return []backend{backendMemory, backendPostgres, backendMongo}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|mongo|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		store     docstoreport.Store
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		store = pgdocstore.NewStore(pool)
		idemStore = pgidempotency.NewStore(pool, issuer)
	case backendMongo:
		mdb := mongo_testutil.OpenDatabase(t)
		ms := mongodocstore.NewStore(mdb)
		if err := ms.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		store = ms
		idemStore = memidempotency.NewStore()
	case backendMemory:
		store = memdocstore.NewStore()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	idp, err := localidp.New(store, clk, localidp.Options{
		Issuer:     issuer,
		Audience:   "eventhub",
		SigningKey: []byte("itest-signing-key-itest-signing-key"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	if err != nil {
		t.Fatalf("localidp.New: %v", err)
	}

	sessions := session.NewFactory(idp, store, clk, session.Options{Precedence: domain.ClaimsFirst})
	eventsReg := events.NewRegistry(store, clk, nil)
	clubsReg := clubs.NewRegistry(store, clk, nil)
	if err := eventsReg.Refresh(context.Background()); err != nil {
		t.Fatalf("events refresh: %v", err)
	}
	if err := clubsReg.Refresh(context.Background()); err != nil {
		t.Fatalf("clubs refresh: %v", err)
	}

	api := httpapi.NewServer(sessions, eventsReg, clubsReg, admin.NewService(idp, store, nil), idp, idemStore, clk,
		httpapi.ServerOptions{AllowAdminSignup: true})
	handler := httpapi.NewRouter(api, httpapi.NewAuthMiddleware(idp))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type authSession struct {
	Token string `json:"token"`
	User  struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		IsAdmin bool   `json:"isAdmin"`
	} `json:"user"`
}

func (s *testServer) signup(t *testing.T, email, name, role string) authSession {
	t.Helper()
	body := map[string]any{"email": email, "password": "hunter22", "name": name}
	if role != "" {
		body["role"] = role
	}
	status, out, _ := s.doJSON(t, http.MethodPost, "/auth/signup", "", body)
	if status != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", status, string(out))
	}
	return mustUnmarshal[authSession](t, out)
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}

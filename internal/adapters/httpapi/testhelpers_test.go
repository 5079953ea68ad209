package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus-events/eventhub-api/internal/adapters/localidp"
	memclock "github.com/campus-events/eventhub-api/internal/adapters/memory/clock"
	memdocstore "github.com/campus-events/eventhub-api/internal/adapters/memory/docstore"
	memidempotency "github.com/campus-events/eventhub-api/internal/adapters/memory/idempotency"
	"github.com/campus-events/eventhub-api/internal/app/admin"
	"github.com/campus-events/eventhub-api/internal/app/clubs"
	"github.com/campus-events/eventhub-api/internal/app/events"
	"github.com/campus-events/eventhub-api/internal/app/session"
	"github.com/campus-events/eventhub-api/internal/domain"
)

type testAPI struct {
	h     http.Handler
	srv   *Server
	store *memdocstore.Store
	clk   *memclock.ManualClock
}

func newTestAPI(t *testing.T, opts ServerOptions) testAPI {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 9, 2, 15, 0, 0, 0, time.UTC))
	store := memdocstore.NewStore()
	idp, err := localidp.New(store, clk, localidp.Options{
		Issuer:     "eventhub-test",
		Audience:   "eventhub",
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	if err != nil {
		t.Fatalf("localidp.New: %v", err)
	}

	sessions := session.NewFactory(idp, store, clk, session.Options{Precedence: domain.DefaultRolePrecedence})
	srv := NewServer(
		sessions,
		events.NewRegistry(store, clk, nil),
		clubs.NewRegistry(store, clk, nil),
		admin.NewService(idp, store, nil),
		idp,
		memidempotency.NewStore(),
		clk,
		opts,
	)
	h := NewRouterWithOptions(srv, RouterOptions{AuthMiddleware: NewAuthMiddleware(idp), LocalAccounts: true})
	return testAPI{h: h, srv: srv, store: store, clk: clk}
}

func (a testAPI) do(t *testing.T, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

// signup creates an account and returns its session.
func (a testAPI) signup(t *testing.T, email, name, role string) SessionResponse {
	t.Helper()
	body := `{"email":"` + email + `","password":"hunter22","name":"` + name + `"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	body += `}`
	rec := a.do(t, http.MethodPost, "/auth/signup", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out SessionResponse
	decode(t, rec, &out)
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var er ErrorResponse
	decode(t, rec, &er)
	return er.Error.Code
}

const hackathonBody = `{"title":"spring hackathon","description":"Build things <b>fast</b>","date":"2024-10-01","time":"18:30","location":"Hall B","club":"acm","category":"Tech","price":0,"maxParticipants":50}`

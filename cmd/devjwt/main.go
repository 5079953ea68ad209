package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/platform/auth/jwks_testutil"
)

// Dev-only token issuer and JWKS server for running the API with AUTH_MODE=jwks locally.
// It signs whatever claims it is asked for.

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	port := getenv("PORT", "5556")
	issuer := getenv("ISSUER", "http://devjwt:5556")
	audience := getenv("AUDIENCE", "eventhub")
	kid := getenv("KID", "dev-kid-1")
	ttl := getenvDuration("TTL", 30*time.Minute)

	kp, err := jwks_testutil.GenerateRSAKeypair(kid)
	if err != nil {
		logger.Fatal("generate key", zap.Error(err))
	}
	jwksJSON, err := jwks_testutil.MarshalJWKS([]jwks_testutil.Keypair{kp})
	if err != nil {
		logger.Fatal("marshal jwks", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/.well-known/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(jwksJSON)
	})

	// Mint a token:
	//   GET /token?sub=alice&email=alice@example.edu&role=admin&admin=true&name=Alice
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sub := strings.TrimSpace(q.Get("sub"))
		if sub == "" {
			http.Error(w, "missing sub", http.StatusBadRequest)
			return
		}
		admin, _ := strconv.ParseBool(q.Get("admin"))

		// Small nbf skew tolerance for local clocks.
		nbf := -5 * time.Second
		ts := jwks_testutil.TokenSpec{
			Issuer:   issuer,
			Audience: audience,
			Subject:  sub,
			Email:    strings.TrimSpace(q.Get("email")),
			Role:     strings.ToLower(strings.TrimSpace(q.Get("role"))),
			Admin:    admin,
			Now:      time.Now().UTC(),
			ExpDelta: ttl,
			NBFDelta: &nbf,
		}
		if name := strings.TrimSpace(q.Get("name")); name != "" {
			ts.Extra = map[string]any{"name": name}
		}

		token, err := jwks_testutil.MintRS256JWT(kp, ts)
		if err != nil {
			logger.Error("mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"sub":   sub,
			"iss":   issuer,
			"aud":   audience,
			"role":  ts.Role,
			"admin": ts.Admin,
			"exp":   ts.Now.Add(ttl).Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("devjwt listening",
		zap.String("port", port),
		zap.String("iss", issuer),
		zap.String("aud", audience),
		zap.String("kid", kid),
		zap.Duration("ttl", ttl))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

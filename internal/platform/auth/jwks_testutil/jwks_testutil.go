package jwks_testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
//
// Use SetKeys to rotate keys.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var jwksJSON atomic.Value // string
	jwksJSON.Store(`{"keys":[]}`)

	setKeys := func(keys []Keypair) {
		b, _ := MarshalJWKS(keys)
		jwksJSON.Store(string(b))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksJSON.Load().(string)))
	}))

	return srv, setKeys
}

// MarshalJWKS renders the public halves of keys as a JWKS document.
func MarshalJWKS(keys []Keypair) ([]byte, error) {
	type jwk struct {
		Kty string `json:"kty"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	out := struct {
		Keys []jwk `json:"keys"`
	}{Keys: make([]jwk, 0, len(keys))}
	enc := base64.RawURLEncoding
	for _, kp := range keys {
		pub := kp.Private.PublicKey
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kp.Kid,
			N:   enc.EncodeToString(pub.N.Bytes()),
			// e is a big-endian unsigned int.
			E: enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return json.Marshal(out)
}

// TokenSpec describes a token to mint. Zero-valued optional claims are omitted.
type TokenSpec struct {
	Issuer   string
	Audience string
	Subject  string
	Email    string
	Role     string
	Admin    bool

	Now      time.Time
	ExpDelta time.Duration
	NBFDelta *time.Duration
	Extra    map[string]any
}

// MintRS256JWT creates a signed JWT using RS256 with the given keypair.
func MintRS256JWT(kp Keypair, spec TokenSpec) (string, error) {
	claims := jwt.MapClaims{
		"iss": spec.Issuer,
		"aud": spec.Audience,
		"sub": spec.Subject,
		"iat": spec.Now.Unix(),
		"exp": spec.Now.Add(spec.ExpDelta).Unix(),
	}
	if spec.NBFDelta != nil {
		claims["nbf"] = spec.Now.Add(*spec.NBFDelta).Unix()
	}
	if spec.Email != "" {
		claims["email"] = spec.Email
	}
	if spec.Role != "" {
		claims["role"] = spec.Role
	}
	if spec.Admin {
		claims["admin"] = true
	}
	for k, v := range spec.Extra {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kp.Kid
	return tok.SignedString(kp.Private)
}

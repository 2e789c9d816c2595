package line

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sharetrust/sharetrust/config"
)

const testChannelID = "1234567890"

type testEnv struct {
	client *Client
	key    *rsa.PrivateKey
	issuer string
}

// newTestEnv 起一个同时扮演令牌端点、档案端点和 JWKS 端点的假 LINE
func newTestEnv(t *testing.T, tokenHandler, profileHandler http.HandlerFunc) *testEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v2.1/certs", func(w http.ResponseWriter, r *http.Request) {
		pub := key.Public().(*rsa.PublicKey)
		jwks := map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": "test-key",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		}
		_ = json.NewEncoder(w).Encode(jwks)
	})
	if tokenHandler != nil {
		mux.HandleFunc("/oauth2/v2.1/token", tokenHandler)
	}
	if profileHandler != nil {
		mux.HandleFunc("/v2/profile", profileHandler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.LineConfig{
		ChannelID:     testChannelID,
		ChannelSecret: "secret",
		RedirectURI:   "https://app.example.com/callback",
		TokenURL:      srv.URL + "/oauth2/v2.1/token",
		ProfileURL:    srv.URL + "/v2/profile",
		JWKSURL:       srv.URL + "/oauth2/v2.1/certs",
		Issuer:        "https://access.line.me",
	}

	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)

	return &testEnv{client: client, key: key, issuer: cfg.Issuer}
}

// signIDToken 用测试私钥签一个 id_token
func (e *testEnv) signIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signed, err := token.SignedString(e.key)
	require.NoError(t, err)
	return signed
}

func validClaims(issuer string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":     issuer,
		"aud":     testChannelID,
		"sub":     "U1234567890abcdef",
		"name":    "Somchai",
		"picture": "https://profile.line-scdn.net/abc",
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func TestExchangeCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			assert.Equal(t, testChannelID, r.PostForm.Get("client_id"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "at-1",
				"id_token":     "idt-1",
				"expires_in":   2592000,
				"token_type":   "Bearer",
			})
		}, nil)

		token, err := env.client.ExchangeCode(context.Background(), "the-code")
		require.NoError(t, err)
		assert.Equal(t, "at-1", token.AccessToken)
		assert.Equal(t, "idt-1", token.IDToken)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}, nil)

		_, err := env.client.ExchangeCode(context.Background(), "bad-code")
		assert.ErrorIs(t, err, ErrCodeExchangeFailed)
	})

	t.Run("missing id_token", func(t *testing.T) {
		env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1"})
		}, nil)

		_, err := env.client.ExchangeCode(context.Background(), "the-code")
		assert.ErrorIs(t, err, ErrCodeExchangeFailed)
	})
}

func TestVerifyIDToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		idToken := env.signIDToken(t, validClaims(env.issuer))
		claims, err := env.client.VerifyIDToken(context.Background(), idToken)
		require.NoError(t, err)
		assert.Equal(t, "U1234567890abcdef", claims.Sub)
		assert.Equal(t, "Somchai", claims.Name)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		c := validClaims("https://evil.example.com")
		_, err := env.client.VerifyIDToken(context.Background(), env.signIDToken(t, c))
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		c := validClaims(env.issuer)
		c["aud"] = "9999999999"
		_, err := env.client.VerifyIDToken(context.Background(), env.signIDToken(t, c))
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		c := validClaims(env.issuer)
		c["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := env.client.VerifyIDToken(context.Background(), env.signIDToken(t, c))
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("signed with unknown key", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims(env.issuer))
		token.Header["kid"] = "unknown-key"
		signed, err := token.SignedString(otherKey)
		require.NoError(t, err)

		_, err = env.client.VerifyIDToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})

	t.Run("missing sub", func(t *testing.T) {
		env := newTestEnv(t, nil, nil)

		c := validClaims(env.issuer)
		delete(c, "sub")
		_, err := env.client.VerifyIDToken(context.Background(), env.signIDToken(t, c))
		assert.ErrorIs(t, err, ErrInvalidIDToken)
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t, nil, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(Profile{
				UserID:      "U1234567890abcdef",
				DisplayName: "Somchai",
				PictureURL:  "https://profile.line-scdn.net/abc",
			})
		})

		profile, err := env.client.GetProfile(context.Background(), "at-1")
		require.NoError(t, err)
		assert.Equal(t, "U1234567890abcdef", profile.UserID)
		assert.Equal(t, "Somchai", profile.DisplayName)
	})

	t.Run("unauthorized", func(t *testing.T) {
		env := newTestEnv(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := env.client.GetProfile(context.Background(), "bad-token")
		assert.ErrorIs(t, err, ErrProfileFetch)
	})
}

package iris

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/iris-1099/internal/domain"
	"github.com/tu-usuario/iris-1099/pkg/config"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

// testKeyAndConfig genera una llave RSA efímera y una configuración mínima
// apuntando al endpoint de autenticación dado.
func testKeyAndConfig(t *testing.T, authEndpoint string) (*rsa.PrivateKey, *config.Config) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "generación de llave RSA de prueba")

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	t.Setenv("IRIS_CLIENT_ID", "abc123")
	t.Setenv("IRIS_PRIVATE_KEY", string(pemBytes))
	t.Setenv("IRIS_TCC", "AB123")

	cfg, err := config.Load()
	require.NoError(t, err, "la configuración de prueba debe construirse")

	if authEndpoint != "" {
		cfg.AuthEndpoint = authEndpoint
	}
	return key, cfg
}

func TestAccessToken_VentanaDeExpiracion(t *testing.T) {
	expiry := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	token := &AccessToken{Token: "tok", ExpiresAt: expiry}

	assert.True(t, token.isExpiredAt(expiry.Add(-30*time.Second)),
		"a T-30s el token ya debe considerarse expirado")
	assert.False(t, token.isExpiredAt(expiry.Add(-31*time.Second)),
		"a T-31s el token sigue vigente")
	assert.True(t, token.isExpiredAt(expiry), "en T está expirado")
}

func TestCreateClientAssertion_Claims(t *testing.T) {
	key, cfg := testKeyAndConfig(t, "https://x/token")

	auth, err := NewAuthenticator(cfg, logger.Nop())
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return t0 }

	signed, err := auth.CreateClientAssertion()
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(signed, &jwt.RegisteredClaims{}, func(tk *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return t0 }))
	require.NoError(t, err, "el assertion debe verificar contra la llave pública")

	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "abc123", claims.Issuer, "iss debe ser el client id")
	assert.Equal(t, "abc123", claims.Subject, "sub debe ser el client id")
	assert.Equal(t, jwt.ClaimStrings{"https://x/token"}, claims.Audience)
	assert.Equal(t, t0.Add(300*time.Second).Unix(), claims.ExpiresAt.Unix(),
		"exp debe ser iat + 300s")
	assert.Equal(t, t0.Unix(), claims.IssuedAt.Unix())
	assert.NotEmpty(t, claims.ID, "jti debe estar presente")
	assert.Equal(t, "iris-a2a-2025", parsed.Header["kid"])
}

func TestRequestToken_Exitoso(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, clientAssertionType, r.PostForm.Get("client_assertion_type"))
		assert.NotEmpty(t, r.PostForm.Get("client_assertion"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	_, cfg := testKeyAndConfig(t, srv.URL)
	auth, err := NewAuthenticator(cfg, logger.Nop())
	require.NoError(t, err)

	token, err := auth.GetAccessToken(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token.Token)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.False(t, token.IsExpired())
}

func TestRequestToken_DefaultsSinExpiresIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok-2"}`))
	}))
	defer srv.Close()

	_, cfg := testKeyAndConfig(t, srv.URL)
	auth, err := NewAuthenticator(cfg, logger.Nop())
	require.NoError(t, err)

	t0 := time.Now()
	token, err := auth.RequestToken(context.Background(), "assertion")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType, "token_type por defecto")
	assert.WithinDuration(t, t0.Add(300*time.Second), token.ExpiresAt, 5*time.Second,
		"expires_in por defecto de 300s")
}

func TestRequestToken_No200SinCuerpoEnElError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","detail":"secreto-sensible"}`))
	}))
	defer srv.Close()

	_, cfg := testKeyAndConfig(t, srv.URL)
	auth, err := NewAuthenticator(cfg, logger.Nop())
	require.NoError(t, err)

	_, err = auth.RequestToken(context.Background(), "assertion")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Contains(t, err.Error(), "401", "el error debe incluir el código HTTP")
	assert.NotContains(t, err.Error(), "secreto-sensible",
		"el cuerpo de la respuesta nunca debe filtrarse al error")
}

func TestGetAccessToken_UsaCacheYRefresca(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	_, cfg := testKeyAndConfig(t, srv.URL)
	auth, err := NewAuthenticator(cfg, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = auth.GetAccessToken(ctx, false)
	require.NoError(t, err)
	_, err = auth.GetAccessToken(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "el segundo llamado debe servirse de la caché")

	_, err = auth.GetAccessToken(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "force refresh siempre intercambia un token nuevo")
}

func TestNewAuthenticator_FallaConLlaveInvalida(t *testing.T) {
	t.Setenv("IRIS_CLIENT_ID", "abc123")
	t.Setenv("IRIS_PRIVATE_KEY", "no soy un PEM")
	t.Setenv("IRIS_TCC", "AB123")

	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = NewAuthenticator(cfg, logger.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

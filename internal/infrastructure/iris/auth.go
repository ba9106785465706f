package iris

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tu-usuario/iris-1099/internal/domain"
	"github.com/tu-usuario/iris-1099/pkg/config"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

const (
	// clientAssertionType URN fijo del flujo JWT bearer (RFC 7523).
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	// assertionLifetime vigencia del client assertion, fijada en 5 minutos
	// por requisito del IRS.
	assertionLifetime = 300 * time.Second
	// authTimeout tiempo máximo del intercambio de token.
	authTimeout = 30 * time.Second
	// defaultExpiresIn segundos de vigencia del token si el servidor no
	// informa expires_in.
	defaultExpiresIn = 300
)

// Authenticator obtiene y cachea tokens bearer del IRS mediante el flujo
// client-credentials con client assertion JWT firmado RS256.
// El refresco del token cacheado está protegido por mutex; fuera de eso una
// instancia no ofrece más garantías de concurrencia.
// Nunca registra en logs el token ni la llave, solo códigos de estado.
type Authenticator struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
	signingKey *rsa.PrivateKey

	mu    sync.Mutex
	token *AccessToken

	now func() time.Time
}

// NewAuthenticator construye el autenticador y parsea la llave privada RSA.
// Falla de inmediato si la llave no es un PEM RSA válido.
func NewAuthenticator(cfg *config.Config, log *logger.Logger) (*Authenticator, error) {
	if log == nil {
		log = logger.Nop()
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM()))
	if err != nil {
		return nil, fmt.Errorf("%w: llave privada RSA inválida: %v", domain.ErrInvalidConfig, err)
	}

	return &Authenticator{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: authTimeout},
		signingKey: key,
		now:        time.Now,
	}, nil
}

// CreateClientAssertion construye el JWT firmado con
// iss=sub=client_id, aud=auth_endpoint, iat=now, exp=now+300s y jti único,
// con el key id configurado en el header "kid".
func (a *Authenticator) CreateClientAssertion() (string, error) {
	now := a.now()

	claims := jwt.RegisteredClaims{
		Issuer:    a.cfg.ClientID,
		Subject:   a.cfg.ClientID,
		Audience:  jwt.ClaimStrings{a.cfg.AuthEndpoint},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = a.cfg.KeyID

	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("%w: no se pudo firmar el client assertion: %v", domain.ErrAuthentication, err)
	}
	return signed, nil
}

// tokenResponse respuesta JSON del endpoint OAuth.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// RequestToken intercambia el client assertion por un token bearer.
// En respuestas no-200 el error incluye el código HTTP pero nunca el cuerpo,
// que puede contener detalle sensible.
func (a *Authenticator) RequestToken(ctx context.Context, assertion string) (*AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_assertion_type", clientAssertionType)
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.AuthEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	a.log.Debug().Str("endpoint", a.cfg.AuthEndpoint).Msg("solicitando token de acceso")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fallo de red contra el endpoint de autenticación: %v", domain.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// No incluir el cuerpo: puede traer detalle sensible.
		a.log.Warn().Int("status", resp.StatusCode).Msg("autenticación rechazada por el IRS")
		return nil, fmt.Errorf("%w: el endpoint de autenticación respondió HTTP %d", domain.ErrAuthentication, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: no se pudo leer la respuesta de token: %v", domain.ErrAuthentication, err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: respuesta de token no es JSON válido: %v", domain.ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: la respuesta de token no contiene access_token", domain.ErrAuthentication)
	}

	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = defaultExpiresIn
	}
	if tr.TokenType == "" {
		tr.TokenType = "Bearer"
	}

	a.log.Info().Int("expires_in", tr.ExpiresIn).Msg("token de acceso obtenido")

	return &AccessToken{
		Token:     tr.AccessToken,
		TokenType: tr.TokenType,
		ExpiresAt: a.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// GetAccessToken devuelve el token cacheado si sigue vigente; si no (o si
// forceRefresh es true) crea un assertion nuevo, lo intercambia y reemplaza
// la caché.
func (a *Authenticator) GetAccessToken(ctx context.Context, forceRefresh bool) (*AccessToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !forceRefresh && a.token != nil && !a.token.isExpiredAt(a.now()) {
		return a.token, nil
	}

	assertion, err := a.CreateClientAssertion()
	if err != nil {
		return nil, err
	}

	token, err := a.RequestToken(ctx, assertion)
	if err != nil {
		return nil, err
	}

	a.token = token
	return token, nil
}

// TestAuthentication fuerza un refresco de token como diagnóstico de
// conectividad y credenciales. Solo registra el resultado, jamás el token.
func (a *Authenticator) TestAuthentication(ctx context.Context) (bool, error) {
	if _, err := a.GetAccessToken(ctx, true); err != nil {
		a.log.Error().Err(err).Msg("prueba de autenticación fallida")
		return false, err
	}
	a.log.Info().Str("environment", a.cfg.Environment).Msg("prueba de autenticación exitosa")
	return true, nil
}

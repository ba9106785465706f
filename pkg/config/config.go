package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Entornos soportados por IRIS. ATS es el ambiente de pruebas del IRS
// (Assurance Testing System); PROD el productivo.
const (
	EnvironmentATS  = "ATS"
	EnvironmentPROD = "PROD"
)

// Endpoints por defecto. Cada uno puede sobreescribirse individualmente
// por variable de entorno.
const (
	defaultATSAuthEndpoint    = "https://ats-api.irs.gov/oauth/token"
	defaultATSSubmitEndpoint  = "https://ats-api.irs.gov/iris/v1/transmissions"
	defaultATSStatusEndpoint  = "https://ats-api.irs.gov/iris/v1/status"
	defaultPRODAuthEndpoint   = "https://api.irs.gov/oauth/token"
	defaultPRODSubmitEndpoint = "https://api.irs.gov/iris/v1/transmissions"
	defaultPRODStatusEndpoint = "https://api.irs.gov/iris/v1/status"
	defaultPRODAckEndpoint    = "https://api.irs.gov/iris/v1/ack"
)

// Config agrupa la configuración inmutable del cliente IRIS A2A
// (lectura vía Viper desde env y opcionalmente archivo .env / config.env).
// Nunca se registra en logs el contenido de la llave privada.
type Config struct {
	// ClientID emitido por el IRS para el flujo client-credentials.
	ClientID string
	// KeyID registrado en el JWKS del IRS; viaja en el header "kid" del JWT.
	KeyID string
	// Environment: ATS (pruebas) o PROD.
	Environment string
	// TCC: Transmitter Control Code de 5 caracteres alfanuméricos.
	TCC string
	// SoftwareID asignado por el IRS al software transmisor.
	SoftwareID string

	// Endpoints resueltos según el entorno (sobreescribibles uno a uno).
	AuthEndpoint   string
	SubmitEndpoint string
	StatusEndpoint string
	AckEndpoint    string

	privateKeyPEM string
}

// PrivateKeyPEM devuelve el contenido PEM de la llave RSA ya resuelto.
func (c *Config) PrivateKeyPEM() string {
	return c.privateKeyPEM
}

// IsProduction indica si la configuración apunta al ambiente productivo.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentPROD
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo). Variables esperadas: IRIS_CLIENT_ID, IRIS_PRIVATE_KEY_B64 /
// IRIS_PRIVATE_KEY / IRIS_PRIVATE_KEY_PATH, IRIS_KEY_ID, IRIS_ENVIRONMENT,
// IRIS_TCC, IRIS_SOFTWARE_ID y los overrides IRIS_*_ENDPOINT.
// Falla en construcción si falta el client id, si no resuelve ninguna fuente
// de llave o si el entorno no es ATS/PROD.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	env := strings.ToUpper(getString(v, "IRIS_ENVIRONMENT", EnvironmentATS))

	cfg := &Config{
		ClientID:    getString(v, "IRIS_CLIENT_ID", ""),
		KeyID:       getString(v, "IRIS_KEY_ID", "iris-a2a-2025"),
		Environment: env,
		TCC:         getString(v, "IRIS_TCC", ""),
		SoftwareID:  getString(v, "IRIS_SOFTWARE_ID", ""),
	}

	switch env {
	case EnvironmentATS:
		cfg.AuthEndpoint = getString(v, "IRIS_AUTH_ENDPOINT", defaultATSAuthEndpoint)
		cfg.SubmitEndpoint = getString(v, "IRIS_SUBMIT_ENDPOINT", defaultATSSubmitEndpoint)
		cfg.StatusEndpoint = getString(v, "IRIS_STATUS_ENDPOINT", defaultATSStatusEndpoint)
		// En ATS las confirmaciones (ACK) comparten la ruta de status;
		// el tipo de solicitud se distingue por RequestTypeCd.
		cfg.AckEndpoint = getString(v, "IRIS_ACK_ENDPOINT", cfg.StatusEndpoint)
	case EnvironmentPROD:
		cfg.AuthEndpoint = getString(v, "IRIS_AUTH_ENDPOINT", defaultPRODAuthEndpoint)
		cfg.SubmitEndpoint = getString(v, "IRIS_SUBMIT_ENDPOINT", defaultPRODSubmitEndpoint)
		cfg.StatusEndpoint = getString(v, "IRIS_STATUS_ENDPOINT", defaultPRODStatusEndpoint)
		cfg.AckEndpoint = getString(v, "IRIS_ACK_ENDPOINT", defaultPRODAckEndpoint)
	default:
		return nil, fmt.Errorf("config: IRIS_ENVIRONMENT inválido: %q (debe ser ATS o PROD)", env)
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("config: la variable IRIS_CLIENT_ID es obligatoria")
	}

	pem, err := resolvePrivateKey(v)
	if err != nil {
		return nil, err
	}
	cfg.privateKeyPEM = pem

	return cfg, nil
}

// resolvePrivateKey resuelve la llave privada en orden de prioridad:
// base64 (IRIS_PRIVATE_KEY_B64) -> PEM crudo (IRIS_PRIVATE_KEY) ->
// ruta de archivo (IRIS_PRIVATE_KEY_PATH). Una fuente de mayor prioridad
// simplemente opaca a las de menor prioridad.
func resolvePrivateKey(v *viper.Viper) (string, error) {
	if b64 := getString(v, "IRIS_PRIVATE_KEY_B64", ""); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return "", fmt.Errorf("config: IRIS_PRIVATE_KEY_B64 no es base64 válido: %w", err)
		}
		return string(raw), nil
	}

	if pem := getString(v, "IRIS_PRIVATE_KEY", ""); pem != "" {
		return pem, nil
	}

	if path := getString(v, "IRIS_PRIVATE_KEY_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("config: no se pudo leer la llave privada en %s: %w", path, err)
		}
		return string(raw), nil
	}

	return "", fmt.Errorf("config: se requiere IRIS_PRIVATE_KEY_B64, IRIS_PRIVATE_KEY o IRIS_PRIVATE_KEY_PATH")
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

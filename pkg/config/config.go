package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// Drivers de almacén de documentos soportados.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	Log      LogConfig
	HTTP     HTTPConfig
	DocStore DocStoreConfig
	JWT      JWTConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel del logger: trace, debug, info, warn, error.
type LogConfig struct {
	Level string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DocStoreConfig conexión al almacén de documentos. Se lee una vez al arrancar.
type DocStoreConfig struct {
	Driver      string   // mongo | postgres | memory
	URLs        []string // lista de servidores
	Database    string
	IDSeparator rune // separador entre colección y secuencia en los IDs
}

// JWTConfig configuración de JWT. Con Secret vacío la API es pública.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// Enabled indica si las rutas requieren Bearer Token.
func (c JWTConfig) Enabled() bool {
	return c.Secret != ""
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, HTTP_PORT, DOCSTORE_URLS, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo .env o config.env; se ignora si no existe.
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	separator, err := parseSeparator(getString(v, "DOCSTORE_ID_SEPARATOR", "-"))
	if err != nil {
		return nil, err
	}
	driver := strings.ToLower(getString(v, "DOCSTORE_DRIVER", DriverMongo))
	switch driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("DOCSTORE_DRIVER desconocido: %q", driver)
	}
	port := getInt(v, "HTTP_PORT", 8080)
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("HTTP_PORT inválido: %d", port)
	}

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "customers-api"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: port,
		},
		DocStore: DocStoreConfig{
			Driver:      driver,
			URLs:        splitList(getString(v, "DOCSTORE_URLS", defaultURL(driver))),
			Database:    getString(v, "DOCSTORE_DATABASE", "organization"),
			IDSeparator: separator,
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "customers-api"),
		},
	}
	if cfg.DocStore.Driver != DriverMemory && len(cfg.DocStore.URLs) == 0 {
		return nil, fmt.Errorf("DOCSTORE_URLS vacío para el driver %s", cfg.DocStore.Driver)
	}
	return cfg, nil
}

func defaultURL(driver string) string {
	switch driver {
	case DriverPostgres:
		return "postgres://postgres@localhost:5432/postgres?sslmode=disable"
	case DriverMemory:
		return ""
	default:
		return "mongodb://localhost:27017"
	}
}

func parseSeparator(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("DOCSTORE_ID_SEPARATOR debe ser un único carácter, recibido %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

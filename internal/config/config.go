package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
}

type Server struct {
	Host           string
	Port           int
	DebugEndpoints bool
	LogLevel       string
}

// Address is the listen address for the HTTP server.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Database describes how to reach the store. It is built once at startup and
// never mutated afterwards.
type Database struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

var sslModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Load reads envFile when it exists, then builds the configuration from the
// process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_name", "postgres")
	v.SetDefault("db_sslmode", "require")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8000")
	v.SetDefault("debug_endpoints", false)
	v.SetDefault("log_level", "info")
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	port, err := parsePort("PORT", v.GetString("port"))
	if err != nil {
		return nil, err
	}

	cfg.Server = Server{
		Host:           v.GetString("host"),
		Port:           port,
		DebugEndpoints: v.GetBool("debug_endpoints"),
		LogLevel:       v.GetString("log_level"),
	}

	if raw := v.GetString("database_url"); raw != "" {
		cfg.Database, err = parseURL(raw)
		if err != nil {
			return nil, err
		}
	} else {
		dbPort, err := parsePort("DB_PORT", v.GetString("db_port"))
		if err != nil {
			return nil, err
		}

		cfg.Database = Database{
			Host:     v.GetString("db_host"),
			Port:     dbPort,
			Name:     v.GetString("db_name"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			SSLMode:  v.GetString("db_sslmode"),
		}
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePort(key string, raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%s: invalid port %q", key, raw)
	}

	return port, nil
}

// parseURL accepts only a well-formed postgres:// or postgresql:// URL.
func parseURL(raw string) (Database, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Database{}, fmt.Errorf("DATABASE_URL: %w", err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Database{}, fmt.Errorf("DATABASE_URL: unsupported scheme %q", u.Scheme)
	}

	d := Database{
		Host:    u.Hostname(),
		Port:    5432,
		Name:    strings.TrimPrefix(u.Path, "/"),
		SSLMode: "require",
	}

	if p := u.Port(); p != "" {
		d.Port, err = parsePort("DATABASE_URL", p)
		if err != nil {
			return Database{}, err
		}
	}

	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}

	if d.Name == "" {
		d.Name = "postgres"
	}

	if mode := u.Query().Get("sslmode"); mode != "" {
		d.SSLMode = mode
	}

	return d, nil
}

// Validate checks the descriptor is complete enough to connect with.
func (d Database) Validate() error {
	switch {
	case d.Host == "":
		return errors.New("database host is not set (DB_HOST)")
	case d.User == "":
		return errors.New("database user is not set (DB_USER)")
	case d.Name == "":
		return errors.New("database name is not set (DB_NAME)")
	case d.Port < 1 || d.Port > 65535:
		return fmt.Errorf("invalid database port %d", d.Port)
	case !sslModes[d.SSLMode]:
		return fmt.Errorf("unsupported sslmode %q", d.SSLMode)
	}

	return nil
}

// DSN renders the descriptor as a lib/pq key=value connection string.
func (d Database) DSN() string {
	parts := []string{
		"host=" + quote(d.Host),
		"port=" + strconv.Itoa(d.Port),
		"dbname=" + quote(d.Name),
		"user=" + quote(d.User),
	}

	if d.Password != "" {
		parts = append(parts, "password="+quote(d.Password))
	}

	parts = append(parts, "sslmode="+quote(d.SSLMode))

	return strings.Join(parts, " ")
}

// Summary is the DSN without the password.
func (d Database) Summary() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=%s", d.Host, d.Port, d.Name, d.User, d.SSLMode)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

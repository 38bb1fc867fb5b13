package entity

import (
	"fmt"
	"net"
	"net/url"
	"sort"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func ConnectPostgresql(config PGConfig) (*sqlx.DB, error) {
	return Open(Config{
		Driver:   "pgx",
		Host:     config.Host,
		Port:     config.Port,
		Database: config.Database,
		User:     config.User,
		Password: config.Password,
	})
}

// Open opens a database handle for cfg. Supported drivers are pgx,
// postgres (lib/pq), sqlite and mysql.
func Open(cfg Config) (*sqlx.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	return sqlx.Open(cfg.Driver, dsn)
}

// DSN renders the data source name for the configured driver.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case "pgx", "postgres":
		q := url.Values{}
		for k, v := range c.Params {
			q.Set(k, v)
		}
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "disable")
		}

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.host(), c.port("5432")),
			Path:     "/" + c.Database,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "sqlite":
		path := c.Path
		if path == "" {
			path = ":memory:"
		}
		if len(c.Params) == 0 {
			return path, nil
		}

		keys := make([]string, 0, len(c.Params))
		for k := range c.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		q := url.Values{}
		for _, k := range keys {
			q.Add(k, c.Params[k])
		}
		return fmt.Sprintf("file:%s?%s", path, q.Encode()), nil
	case "mysql":
		my := mysql.NewConfig()
		my.User = c.User
		my.Passwd = c.Password
		my.Net = "tcp"
		my.Addr = net.JoinHostPort(c.host(), c.port("3306"))
		my.DBName = c.Database
		my.ParseTime = true
		if len(c.Params) > 0 {
			my.Params = make(map[string]string, len(c.Params))
			for k, v := range c.Params {
				my.Params[k] = v
			}
		}
		return my.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func (c Config) host() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

func (c Config) port(def string) string {
	if c.Port == "" {
		return def
	}
	return c.Port
}

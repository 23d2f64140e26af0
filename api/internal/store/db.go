package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// Open connects through the pgx stdlib driver and pings the database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// небольшой пул: одна запись на отправку
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// ResolveDSN prefers DATABASE_URL, then builds one from POSTGRES_* / PG* vars.
// Empty result means the audit log is disabled.
func ResolveDSN(databaseURL string) string {
	if v := strings.TrimSpace(databaseURL); v != "" {
		return v
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if host == "" && pass == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "paddy")
	if host == "" {
		host = "db"
	}
	port := getenvDefault("PGPORT", "5432")
	name := getenvDefault("POSTGRES_DB", "paddy")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary drops the password so the DSN can be logged.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

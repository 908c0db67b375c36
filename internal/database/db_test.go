package database

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	dsn := DSN("app", "s3cret", "db", "3306", "events")
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if cfg.User != "app" || cfg.Passwd != "s3cret" || cfg.Addr != "db:3306" || cfg.DBName != "events" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.ParseTime || !cfg.ClientFoundRows {
		t.Fatalf("parseTime and clientFoundRows must be on: %q", dsn)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Fatalf("missing charset: %q", dsn)
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := DSN("root", "", "localhost", "3306", "events")
	if strings.HasPrefix(dsn, "root:@") {
		t.Fatalf("empty password should be omitted: %q", dsn)
	}
}

package config

import (
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestDataSourceName_ReadCommittedOnEveryConnection(t *testing.T) {
	t.Setenv("DB_USER", "sales")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "sales")

	cfg, err := mysqlDriver.ParseDSN(DataSourceName())
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if cfg.Net != "tcp" || cfg.Addr != "db.local:3306" || cfg.DBName != "sales" || !cfg.ParseTime {
		t.Fatalf("unexpected dsn config %+v", cfg)
	}
	if got := cfg.Params["transaction_isolation"]; got != "'READ-COMMITTED'" {
		t.Fatalf("expected READ-COMMITTED session variable, got %q", got)
	}
}

func TestDataSourceName_CloudSqlSocket(t *testing.T) {
	t.Setenv("DB_HOST", "/cloudsql/project:region:instance")
	cfg, err := mysqlDriver.ParseDSN(DataSourceName())
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if cfg.Net != "unix" || cfg.Addr != "/cloudsql/project:region:instance" {
		t.Fatalf("expected unix socket, got %s %s", cfg.Net, cfg.Addr)
	}
}

func TestRetryBackoff(t *testing.T) {
	cases := map[int]time.Duration{
		1:  2 * time.Second,
		4:  16 * time.Second,
		5:  30 * time.Second,
		12: 30 * time.Second,
	}
	for attempt, want := range cases {
		if got := RetryBackoff(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

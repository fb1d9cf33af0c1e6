package db_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/missiond/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		dsn        string
		wantSubstr string
	}{
		{"unreachable host", "host=127.0.0.1 port=1 sslmode=disable connect_timeout=1", "ping postgres"},
		{"malformed DSN", "postgres://%zz", "postgres"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestInitMongo_InvalidURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := db.InitMongo(ctx, "not-a-mongo-uri", "missiond")
	if err == nil {
		t.Fatal("InitMongo with a bad URI did not return error")
	}
	if !strings.Contains(err.Error(), "connect mongo") {
		t.Errorf("unexpected error: %v", err)
	}
}

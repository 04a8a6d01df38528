package database

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationFiles, migrationsDir)
	if err != nil {
		t.Fatalf("iofs.New() error = %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if first != 1 {
		t.Fatalf("First() = %d, want 1", first)
	}

	tests := []struct {
		version  uint
		contains string
	}{
		{version: 1, contains: "mtb_pref"},
		{version: 2, contains: "dtb_product_category"},
		{version: 3, contains: "plg_oauth2_access_token"},
	}

	for _, tt := range tests {
		up, _, err := src.ReadUp(tt.version)
		if err != nil {
			t.Fatalf("ReadUp(%d) error = %v", tt.version, err)
		}
		body, err := io.ReadAll(up)
		up.Close()
		if err != nil {
			t.Fatalf("ReadUp(%d) read error = %v", tt.version, err)
		}
		if !strings.Contains(string(body), tt.contains) {
			t.Errorf("migration %d does not mention %s", tt.version, tt.contains)
		}

		down, _, err := src.ReadDown(tt.version)
		if err != nil {
			t.Fatalf("ReadDown(%d) error = %v", tt.version, err)
		}
		down.Close()
	}

	if _, err := src.Next(3); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Next(3) error = %v, want not exist", err)
	}
}

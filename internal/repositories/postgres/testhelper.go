package postgres

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/asakaida/commerce-api/internal/infrastructure/config"
	"github.com/asakaida/commerce-api/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// testTables lists every table truncated between tests, children first
var testTables = []string{
	"plg_oauth2_access_token",
	"plg_oauth2_client",
	"dtb_block_position",
	"dtb_block",
	"dtb_page_layout",
	"dtb_payment_option",
	"dtb_order_detail",
	"dtb_order",
	"dtb_customer_address",
	"dtb_customer",
	"dtb_product_category",
	"dtb_product_tag",
	"dtb_product_image",
	"dtb_product_class",
	"dtb_product",
	"dtb_category",
	"dtb_news",
	"dtb_payment",
	"dtb_deliv",
	"dtb_member",
}

// SetupTestDB creates a test database connection and runs migrations.
// The test is skipped when no test database is configured.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Initialize test config
	if err := config.InitConfig("test"); err != nil {
		t.Skipf("Skipping: failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Skipping: test database is not configured: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		if os.Getenv("CI") != "" {
			t.Fatalf("Failed to connect to database: %v", err)
		}
		t.Skipf("Skipping: test database is unavailable: %v", err)
	}

	// Run migrations
	if err := pg.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	truncate(t, pg.DB)
	return pg.DB
}

// CleanupTestDB closes the database connection and cleans up test data
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	truncate(t, db)

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range testTables {
		_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}
}

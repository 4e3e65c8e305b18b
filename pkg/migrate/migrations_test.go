package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/stockflow-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPolicyMigrationEnforcesSingleVariant(t *testing.T) {
	content := readMigration(t, "create_inventory_policies")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS inventory_policies",
		"article_id uuid PRIMARY KEY",
		"CONSTRAINT chk_inventory_policy_variant CHECK",
		"kind = 'fixed_lot'",
		"kind = 'fixed_interval'",
		"DROP TABLE IF EXISTS inventory_policies",
	})
}

func TestPurchaseOrderMigrationSeedsStatuses(t *testing.T) {
	content := readMigration(t, "create_purchase_orders")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS purchase_order_statuses",
		"('pending', 'Pending', false)",
		"('cancelled', 'Cancelled', true)",
		"FOREIGN KEY (status) REFERENCES purchase_order_statuses(code)",
		"FOREIGN KEY (order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
	})
}

func TestCatalogMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_catalog")
	assertContains(t, content, []string{
		"CHECK (on_hand_quantity >= 0)",
		"PRIMARY KEY (article_id, supplier_id)",
		"CHECK (lead_time_days > 0)",
	})
}

func TestValidateDirAndEmbeddedAgree(t *testing.T) {
	onDisk, err := migrate.ValidateDir("migrations")
	if err != nil {
		t.Fatalf("validate dir: %v", err)
	}
	embedded, err := migrate.ValidateEmbedded()
	if err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	if onDisk == 0 || onDisk != embedded {
		t.Fatalf("expected matching non-zero counts, disk=%d embedded=%d", onDisk, embedded)
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 4, 2, 10, 11, 12, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Sales Index!", at)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260402101112_add_sales_index.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := migrate.CreateSQLMigration(dir, "add sales index", at); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if count, err := migrate.ValidateDir(dir); err != nil || count != 1 {
		t.Fatalf("expected generated migration to validate, count=%d err=%v", count, err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

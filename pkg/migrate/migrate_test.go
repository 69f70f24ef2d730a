package migrate

import (
	"io/fs"
	"os"
	"path"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestLedgerMigrationEnforcesReferenceUniqueness(t *testing.T) {
	content := readEmbedded(t, "_create_transactions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS transactions",
		"ux_transactions_type_reference ON transactions (type, reference)",
		"balance_after numeric(12,2) NOT NULL",
		"DROP TABLE IF EXISTS transactions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestShopAndTaskMigrationsHaveUniqueKeys(t *testing.T) {
	shop := readEmbedded(t, "_create_sms_shop_complaints.sql")
	if !strings.Contains(shop, "ux_shop_orders_reference ON shop_orders (reference)") {
		t.Fatal("shop_orders.reference must be unique")
	}
	tasks := readEmbedded(t, "_create_deferred_tasks_top_ups.sql")
	if !strings.Contains(tasks, "ux_deferred_tasks_task_key ON deferred_tasks (task_key)") {
		t.Fatal("deferred_tasks.task_key must be unique")
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_bad.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateFSRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20260101000000_only_up.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	err := ValidateFS(fsys, "m")
	if err == nil || !strings.Contains(err.Error(), "-- +goose Down") {
		t.Fatalf("expected missing down error, got %v", err)
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: body},
		"m/20260101000000_b.sql": {Data: body},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 10, 4, 5, 0, time.UTC)

	p, err := CreateSQLMigration(dir, "Add Shop Index!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if path.Base(p) != "20260302100405_add_shop_index.sql" {
		t.Fatalf("unexpected filename %q", path.Base(p))
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "-- rollback add_shop_index") {
		t.Fatalf("unexpected template:\n%s", b)
	}

	if _, err := CreateSQLMigration(dir, "add shop index", now); err == nil {
		t.Fatal("expected error for existing migration")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected error for empty sanitized name")
	}
}

func readEmbedded(t *testing.T, suffix string) string {
	t.Helper()
	entries, err := fs.ReadDir(embedded, embeddedDir)
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			b, err := fs.ReadFile(embedded, path.Join(embeddedDir, e.Name()))
			if err != nil {
				t.Fatalf("read %s: %v", e.Name(), err)
			}
			return string(b)
		}
	}
	t.Fatalf("no migration matching %q", suffix)
	return ""
}

func TestValidateFSRejectsUnclosedStatement(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20260101000000_open.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
	}
	err := ValidateFS(fsys, "m")
	if err == nil || !strings.Contains(err.Error(), "StatementEnd") {
		t.Fatalf("expected unbalanced statement error, got %v", err)
	}
}

func TestParseFileNameRejectsImpossibleTimestamp(t *testing.T) {
	if _, err := parseFileName("20261399000000_bad_month.sql"); err == nil {
		t.Fatal("expected invalid timestamp error")
	}
	file, err := parseFileName("20260301090000_create_users_products.sql")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if file.Slug != "create_users_products" || file.Name() != "20260301090000_create_users_products.sql" {
		t.Fatalf("unexpected parse %+v", file)
	}
}

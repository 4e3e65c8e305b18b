package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpTypedErrorCarriesMetadata(t *testing.T) {
	err := fmt.Errorf("create order: %w", DuplicateOrder("open order exists").WithDetails(map[string]any{"order_id": "po-1"}))

	d := Dump(err)

	if d.Code != CodeDuplicateOrder {
		t.Fatalf("expected duplicate order code, got %q", d.Code)
	}
	if d.Details == nil {
		t.Fatal("expected details to be carried")
	}
	if d.Retryable {
		t.Fatal("duplicate order conflicts are not retryable")
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", d.Chain)
	}
}

func TestDumpPostgresDrivers(t *testing.T) {
	pgx := Wrap(CodeDependency, &pgconn.PgError{Code: "23514", ConstraintName: "chk_articles_on_hand", TableName: "articles"}, "adjust stock")
	if d := Dump(pgx); d.PGCode != "23514" || d.PGConstraint != "chk_articles_on_hand" || d.PGTable != "articles" {
		t.Fatalf("unexpected pgx dump %+v", d)
	}
	if d := Dump(pgx); !d.Retryable {
		t.Fatal("dependency errors are retryable")
	}

	pqErr := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "suppliers_name_key"})
	if d := Dump(pqErr); d.PGCode != "23505" || d.PGConstraint != "suppliers_name_key" {
		t.Fatalf("unexpected pq dump %+v", d)
	}
}

func TestDumpSQLiteConstraintMessages(t *testing.T) {
	unique := Dump(fmt.Errorf("UNIQUE constraint failed: article_suppliers.article_id"))
	if unique.PGCode != "23505" || unique.PGTable != "article_suppliers" || unique.PGColumn != "article_id" {
		t.Fatalf("unexpected unique dump %+v", unique)
	}

	check := Dump(fmt.Errorf("CHECK constraint failed: on_hand_quantity >= 0"))
	if check.PGCode != "23514" || check.PGConstraint != "on_hand_quantity >= 0" {
		t.Fatalf("unexpected check dump %+v", check)
	}

	plain := Dump(fmt.Errorf("connection refused"))
	if plain.PGCode != "" {
		t.Fatalf("plain errors carry no pg code, got %q", plain.PGCode)
	}
}

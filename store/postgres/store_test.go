package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres provisions a throwaway PostgreSQL container and returns a
// pgx connection to it.
func startPostgres(t *testing.T) *pgx.Conn {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("custodian_test"),
		postgres.WithUsername("custodian"),
		postgres.WithPassword("custodian"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("container terminate: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = conn.Close(context.Background())
	})
	return conn
}

func applySchema(t *testing.T, conn *pgx.Conn) {
	t.Helper()
	ctx := context.Background()
	for _, ddl := range migrationDDL {
		if _, err := conn.Exec(ctx, ddl); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
}

func TestSchemaApplies(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	conn := startPostgres(t)
	applySchema(t, conn)

	// Applying again must be a no-op; every statement is IF NOT EXISTS.
	applySchema(t, conn)

	var n int
	err := conn.QueryRow(context.Background(),
		`SELECT count(*) FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_name LIKE 'custodian_%'`).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Fatalf("expected 20 custodian tables, got %d", n)
	}
}

func TestGrantUniqueViolationCode(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	conn := startPostgres(t)
	applySchema(t, conn)
	ctx := context.Background()

	const ins = `INSERT INTO custodian_grants
		(domain_id, entity_id, grantee_kind, grantee_id, permission, cascades)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := conn.Exec(ctx, ins, "gw1", "proj-1", "USER", "alice", "READ", true); err != nil {
		t.Fatal(err)
	}
	_, err := conn.Exec(ctx, ins, "gw1", "proj-1", "USER", "alice", "READ", false)
	if err == nil {
		t.Fatal("expected duplicate grant to violate the primary key")
	}
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	// A different permission on the same grantee is a distinct grant.
	if _, err := conn.Exec(ctx, ins, "gw1", "proj-1", "USER", "alice", "WRITE", true); err != nil {
		t.Fatal(err)
	}
}

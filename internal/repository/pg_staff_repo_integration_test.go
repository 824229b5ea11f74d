package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/notifyhub/orderpush/internal/db"
	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/repository"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker/container runtime unavailable: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "orderpush",
			"POSTGRES_PASSWORD": "orderpush",
			"POSTGRES_DB":       "orderpush",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker/container runtime unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	url := fmt.Sprintf("postgres://orderpush:orderpush@%s:%s/orderpush?sslmode=disable", host, port.Port())

	if err := db.Migrate(url, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func strPtr(s string) *string { return &s }

func TestPgStaffRepository_Integration(t *testing.T) {
	pool := startPostgres(t)
	repo := repository.NewPgStaffRepository(pool)
	ctx := context.Background()

	seed := []*domain.StaffRecord{
		{ID: "ann@example.com", Role: "branch_admin", Active: true, BranchIDs: []string{"b1"}, PushToken: strPtr("tok-ann")},
		{ID: "bob@example.com", Role: "branch_admin", Active: true, BranchIDs: []string{"b2", "b3"}, PushToken: strPtr("tok-bob")},
		{ID: "cat@example.com", Role: "branch_admin", Active: false, BranchIDs: []string{"b1"}, PushToken: strPtr("tok-cat")},
		{ID: "dan@example.com", Role: "cashier", Active: true, BranchIDs: []string{"b1"}, PushToken: strPtr("tok-dan")},
		{ID: "eve@example.com", Role: "branch_admin", Active: true, BranchIDs: []string{"b1"}},
	}
	for _, s := range seed {
		if err := repo.Upsert(ctx, s); err != nil {
			t.Fatalf("upsert %s: %v", s.ID, err)
		}
	}

	t.Run("query matches role, activity and branch overlap", func(t *testing.T) {
		got, err := repo.QueryActiveRecipients(ctx, "branch_admin", []string{"b1", "b3"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.IdentityID
		}
		want := []string{"ann@example.com", "bob@example.com", "eve@example.com"}
		if fmt.Sprint(ids) != fmt.Sprint(want) {
			t.Fatalf("expected %v, got %v", want, ids)
		}
		if got[2].Credential != "" {
			t.Fatalf("expected empty credential for eve, got %q", got[2].Credential)
		}
	})

	t.Run("clear credential is guarded and idempotent", func(t *testing.T) {
		changed, err := repo.ClearCredential(ctx, "ann@example.com", "tok-other")
		if err != nil || changed {
			t.Fatalf("expected guarded no-op, got changed=%v err=%v", changed, err)
		}

		changed, err = repo.ClearCredential(ctx, "ann@example.com", "tok-ann")
		if err != nil || !changed {
			t.Fatalf("expected credential cleared, got changed=%v err=%v", changed, err)
		}
		first, err := repo.GetByID(ctx, "ann@example.com")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if first.PushToken != nil || first.PushTokenInvalidated == nil {
			t.Fatalf("expected cleared token with timestamp, got %+v", first)
		}

		changed, err = repo.ClearCredential(ctx, "ann@example.com", "tok-ann")
		if err != nil || changed {
			t.Fatalf("expected second clear to be a no-op, got changed=%v err=%v", changed, err)
		}
		second, _ := repo.GetByID(ctx, "ann@example.com")
		if !second.PushTokenInvalidated.Equal(*first.PushTokenInvalidated) {
			t.Fatal("expected invalidation timestamp to be unchanged by the repeat")
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, "nobody"); err != domain.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

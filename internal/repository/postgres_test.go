package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/persistence"
)

// testDSNEnv names a scratch database for the SQL-backed tests. Each run
// migrates into its own schema and drops it afterwards.
const testDSNEnv = "COMPLAINT_TEST_POSTGRES_DSN"

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	schema := "repo_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect scoped: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	if err := persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// backdate pins created_at so ordering assertions do not depend on clock resolution.
func backdate(t *testing.T, pool *pgxpool.Pool, table, id string, age time.Duration) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"UPDATE "+table+" SET created_at = NOW() - make_interval(secs => $1) WHERE id = $2",
		age.Seconds(), id)
	if err != nil {
		t.Fatalf("backdate %s: %v", id, err)
	}
}

func TestUserRepositoryAgainstPostgres(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	alice := &domain.User{Name: "Alice Liddell", Email: "alice@x.com", PasswordHash: "h"}
	bob := &domain.User{Name: "Bob", Email: "bob@x.com", PasswordHash: "h", Role: domain.RoleAdmin}
	carol := &domain.User{Name: "Carol", Email: "carol_100%@x.com", PasswordHash: "h",
		ProfilePicture: &domain.Image{URL: "http://cdn/carol.png", Handle: "profile_pictures/carol.png"}}
	for i, u := range []*domain.User{alice, bob, carol} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.Email, err)
		}
		backdate(t, pool, "users", u.ID, time.Duration(3-i)*time.Hour)
	}
	if alice.Role != domain.RoleUser {
		t.Fatalf("expected default role, got %q", alice.Role)
	}

	err := repo.Create(ctx, &domain.User{Name: "Dup", Email: "alice@x.com", PasswordHash: "h"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "carol_100%@x.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ProfilePicture == nil || got.ProfilePicture.Handle != "profile_pictures/carol.png" {
		t.Fatalf("picture not stored: %+v", got.ProfilePicture)
	}

	got.ProfilePicture = nil
	got.Name = "Carol King"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := repo.GetByID(ctx, carol.ID)
	if reloaded.Name != "Carol King" || reloaded.ProfilePicture != nil {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	all, total, err := repo.List(ctx, UserFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].ID != carol.ID || all[2].ID != alice.ID {
		t.Fatalf("expected newest first, got %d users", len(all))
	}

	found, total, _ := repo.List(ctx, UserFilter{Search: "LIDDELL"})
	if total != 1 || found[0].ID != alice.ID {
		t.Fatalf("case-insensitive name search failed: %d", total)
	}
	found, total, _ = repo.List(ctx, UserFilter{Search: "100%"})
	if total != 1 || found[0].ID != carol.ID {
		t.Fatalf("literal percent search failed: %d", total)
	}
	if _, total, _ = repo.List(ctx, UserFilter{Search: "%"}); total != 1 {
		t.Fatalf("wildcard must be escaped, matched %d", total)
	}

	admin := domain.RoleAdmin
	admins, total, _ := repo.List(ctx, UserFilter{Role: &admin})
	if total != 1 || admins[0].ID != bob.ID {
		t.Fatalf("role filter failed: %d", total)
	}

	page, total, _ := repo.List(ctx, UserFilter{Limit: 1, Offset: 1})
	if total != 3 || len(page) != 1 || page[0].ID != bob.ID {
		t.Fatalf("unexpected page: total=%d len=%d", total, len(page))
	}

	byIDs, err := repo.ListByIDs(ctx, []string{alice.ID, bob.ID})
	if err != nil || len(byIDs) != 2 {
		t.Fatalf("list by ids: %v %d", err, len(byIDs))
	}

	if err := repo.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestComplaintRepositoryAgainstPostgres(t *testing.T) {
	pool := newTestPool(t)
	users := NewUserRepository(pool)
	repo := NewComplaintRepository(pool)
	ctx := context.Background()

	alice := &domain.User{Name: "Alice", Email: "alice@x.com", PasswordHash: "h"}
	bob := &domain.User{Name: "Bob", Email: "bob@x.com", PasswordHash: "h"}
	for _, u := range []*domain.User{alice, bob} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	seed := []struct {
		owner    string
		status   domain.ComplaintStatus
		category domain.ComplaintCategory
		priority domain.ComplaintPriority
	}{
		{alice.ID, domain.ComplaintStatusPending, domain.CategoryNoise, domain.ComplaintPriorityLow},
		{alice.ID, domain.ComplaintStatusResolved, domain.CategoryNoise, domain.ComplaintPriorityHigh},
		{alice.ID, domain.ComplaintStatusPending, domain.CategoryWaterSupply, domain.ComplaintPriorityHigh},
		{bob.ID, domain.ComplaintStatusRejected, domain.CategoryNoise, domain.ComplaintPriorityMedium},
	}
	ids := make([]string, len(seed))
	for i, s := range seed {
		c := &domain.Complaint{
			OwnerID:     s.owner,
			Title:       "t",
			Description: "d",
			Category:    s.category,
			Address:     "a",
			Status:      s.status,
			Priority:    s.priority,
		}
		if i == 0 {
			c.Images = []domain.Image{{URL: "http://cdn/1.png", Handle: "complaints/1.png"}}
		}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create complaint %d: %v", i, err)
		}
		ids[i] = c.ID
		backdate(t, pool, "complaints", c.ID, time.Duration(len(seed)-i)*time.Hour)
	}

	first, err := repo.GetByID(ctx, ids[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(first.Images) != 1 || first.Images[0].Handle != "complaints/1.png" {
		t.Fatalf("images not round-tripped: %+v", first.Images)
	}
	noImages, _ := repo.GetByID(ctx, ids[1])
	if noImages.Images == nil || len(noImages.Images) != 0 {
		t.Fatalf("expected empty image list, got %#v", noImages.Images)
	}

	mine, err := repo.ListByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 3 || mine[0].ID != ids[2] || mine[2].ID != ids[0] {
		t.Fatalf("expected alice's complaints newest first")
	}

	noise := domain.CategoryNoise
	high := domain.ComplaintPriorityHigh
	pending := domain.ComplaintStatusPending
	cases := []struct {
		name    string
		filter  ComplaintFilter
		wantIDs []string
	}{
		{"all newest first", ComplaintFilter{}, []string{ids[3], ids[2], ids[1], ids[0]}},
		{"status", ComplaintFilter{Status: &pending}, []string{ids[2], ids[0]}},
		{"category and priority", ComplaintFilter{Category: &noise, Priority: &high}, []string{ids[1]}},
		{"owner", ComplaintFilter{OwnerID: &bob.ID}, []string{ids[3]}},
		{"second page", ComplaintFilter{Limit: 2, Offset: 2}, []string{ids[1], ids[0]}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if tc.filter.Limit == 0 && total != int64(len(tc.wantIDs)) {
				t.Fatalf("expected total %d, got %d", len(tc.wantIDs), total)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("expected %d rows, got %d", len(tc.wantIDs), len(got))
			}
			for i := range got {
				if got[i].ID != tc.wantIDs[i] {
					t.Fatalf("row %d: expected %s, got %s", i, tc.wantIDs[i], got[i].ID)
				}
			}
		})
	}

	stats, err := repo.StatsByOwners(ctx, []string{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.ComplaintStats{Total: 3, Pending: 2, Resolved: 1}
	if stats[alice.ID] != want {
		t.Fatalf("alice stats: %+v", stats[alice.ID])
	}
	if stats[bob.ID] != (domain.ComplaintStats{Total: 1, Rejected: 1}) {
		t.Fatalf("bob stats: %+v", stats[bob.ID])
	}

	first.Status = domain.ComplaintStatusInProgress
	first.AdminNotes = "crew dispatched"
	first.Images = nil
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := repo.GetByID(ctx, ids[0])
	if updated.Status != domain.ComplaintStatusInProgress || updated.AdminNotes != "crew dispatched" || len(updated.Images) != 0 {
		t.Fatalf("update not persisted: %+v", updated)
	}
	if err := repo.Update(ctx, &domain.Complaint{ID: uuid.NewString(), Status: domain.ComplaintStatusPending, Priority: domain.ComplaintPriorityLow}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found updating a missing complaint, got %v", err)
	}

	removed, err := repo.DeleteByOwner(ctx, alice.ID)
	if err != nil || removed != 3 {
		t.Fatalf("delete by owner: removed=%d err=%v", removed, err)
	}
	if err := repo.Delete(ctx, ids[3]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, ids[3]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
)

func newAnn() user.NewUser {
	return user.NewUser{Name: "Ann", Email: "ann@x.com", Role: user.RoleAdmin, PasswordHash: "hash"}
}

func TestUsersRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	created, err := repo.Create(ctx, newAnn())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("store-assigned fields missing: %+v", created)
	}

	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil || byID.Email != "ann@x.com" {
		t.Fatalf("get by id: %+v %v", byID, err)
	}

	byEmail, err := repo.GetByEmail(ctx, "ann@x.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("get by email: %+v %v", byEmail, err)
	}

	if _, err := repo.GetByEmail(ctx, "ANN@x.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("email match must be exact, got %v", err)
	}
}

func TestUsersRepo_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	if _, err := repo.Create(ctx, newAnn()); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, newAnn()); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("second create: got %v, want ErrEmailTaken", err)
	}

	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(all))
	}
}

func TestUsersRepo_ConcurrentDuplicateCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, newAnn()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("got %d successful creates, want 1", successes)
	}
}

func TestUsersRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	ann, _ := repo.Create(ctx, newAnn())
	bob, _ := repo.Create(ctx, user.NewUser{Name: "Bob", Email: "bob@x.com", Role: user.RoleWebexUser, PasswordHash: "h"})

	taken := "ann@x.com"
	if _, err := repo.Update(ctx, bob.ID, user.Patch{Email: &taken}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}

	newEmail := "annie@x.com"
	updated, err := repo.Update(ctx, ann.ID, user.Patch{Email: &newEmail})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Email != newEmail {
		t.Fatalf("email not updated: %+v", updated)
	}
	if _, err := repo.GetByEmail(ctx, "ann@x.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("old email should be released, got %v", err)
	}
	if _, err := repo.Create(ctx, newAnn()); err != nil {
		t.Fatalf("old email should be reusable: %v", err)
	}

	if _, err := repo.Update(ctx, "missing", user.Patch{}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUsersRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	ann, _ := repo.Create(ctx, newAnn())

	if err := repo.Delete(ctx, ann.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, ann.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByEmail(ctx, "ann@x.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("email index not cleaned: %v", err)
	}
}

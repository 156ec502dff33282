package cached

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/domain/user"
)

const (
	listKey       = "users:list:v1"
	userKeyPrefix = "users:id:v1:"
)

func userKey(id string) string {
	return userKeyPrefix + id
}

// Store is the full user store contract shared by the postgres and memory repos.
type Store interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// UsersRepo is a read-through cache in front of a Store.
//
// Entries are encoded with the user's public JSON form, so users served from cache carry an
// empty PasswordHash. GetByEmail, the credential lookup, always goes to the store.
// Cache failures are logged and fall through to the store.
//
// Writes bump a generation counter; a fill that raced a write removes its own entry, so this
// process never serves a record older than its last write. Other replicas only drop their
// entries when the cache is shared (Redis) or CACHE_TTL expires.
type UsersRepo struct {
	next  Store
	cache cache.Store
	log   *slog.Logger
	gen   atomic.Uint64
}

func NewUsersRepo(next Store, c cache.Store, log *slog.Logger) *UsersRepo {
	if log == nil {
		log = slog.Default()
	}
	return &UsersRepo{next: next, cache: c, log: log}
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if r.lookup(ctx, listKey, &users) {
		return users, nil
	}

	gen := r.gen.Load()
	users, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}

	r.fill(ctx, gen, listKey, users)
	return users, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	if r.lookup(ctx, userKey(id), &u) {
		return u, nil
	}

	gen := r.gen.Load()
	u, err := r.next.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}

	r.fill(ctx, gen, userKey(id), u)
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.next.GetByEmail(ctx, email)
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	u, err := r.next.Create(ctx, nu)
	if err != nil {
		return user.User{}, err
	}

	r.invalidate(ctx)
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	u, err := r.next.Update(ctx, id, patch)
	if err != nil {
		return user.User{}, err
	}

	r.invalidate(ctx, userKey(id))
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, userKey(id))
	return nil
}

// Ping forwards to the wrapped store when it supports readiness checks.
func (r *UsersRepo) Ping(ctx context.Context) error {
	if p, ok := r.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *UsersRepo) lookup(ctx context.Context, key string, out any) bool {
	b, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}

	if err := json.Unmarshal(b, out); err != nil {
		r.log.WarnContext(ctx, "cache entry undecodable", "key", key, "err", err)
		return false
	}
	return true
}

// fill caches v read at generation gen. When a write landed meanwhile the entry is skipped,
// or removed again if the write finished after it was set.
func (r *UsersRepo) fill(ctx context.Context, gen uint64, key string, v any) {
	if r.gen.Load() != gen {
		return
	}

	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, b); err != nil {
		r.log.WarnContext(ctx, "cache set failed", "key", key, "err", err)
		return
	}

	if r.gen.Load() != gen {
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.WarnContext(ctx, "cache invalidation failed", "keys", []string{key}, "err", err)
		}
	}
}

func (r *UsersRepo) invalidate(ctx context.Context, keys ...string) {
	r.gen.Add(1)
	keys = append(keys, listKey)
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.WarnContext(ctx, "cache invalidation failed", "keys", keys, "err", err)
	}
}

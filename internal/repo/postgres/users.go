package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	invalidTextRepr = "22P02"
	usersEmailKey   = "users_email_key"
	userColumns     = `id, name, email, role, password_hash, created_at, updated_at`
)

// DBObserver times a logical store operation. observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, obs DBObserver) *UsersRepo {
	return &UsersRepo{pool: pool, obs: obs}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.obs == nil {
		return fn()
	}
	return r.obs.ObserveDB(op, fn)
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	var u user.User

	err := r.observe("users.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO users (name, email, role, password_hash)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			nu.Name, nu.Email, string(nu.Role), nu.PasswordHash,
		)
		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		return user.User{}, mapWriteErr(err)
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return user.User{}, mapReadErr(err)
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return user.User{}, mapReadErr(err)
	}
	return u, nil
}

// Update writes only the non-nil patch fields and bumps updated_at.
func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var role *string
	if patch.Role != nil {
		s := string(*patch.Role)
		role = &s
	}

	var u user.User

	err := r.observe("users.update", func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE users SET
				name          = COALESCE($2, name),
				email         = COALESCE($3, email),
				role          = COALESCE($4, role),
				password_hash = COALESCE($5, password_hash),
				updated_at    = now()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, patch.Name, patch.Email, role, patch.PasswordHash,
		)
		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if mapped := mapReadErr(err); errors.Is(mapped, user.ErrNotFound) {
			return user.User{}, mapped
		}
		return user.User{}, mapWriteErr(err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return mapReadErr(err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u    user.User
		role string
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

// no row, or an id that is not a uuid, both mean the user does not exist
func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepr {
		return user.ErrNotFound
	}

	return err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == usersEmailKey {
		return user.ErrEmailTaken
	}
	return err
}

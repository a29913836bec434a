package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// UserRepo implements outbound.UserRepository using SQLite.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{db: store.DB}
}

var _ outbound.UserRepository = (*UserRepo)(nil)

// Upsert inserts the user or updates its mutable fields. created_at is kept from
// the first insert.
func (r *UserRepo) Upsert(ctx context.Context, u model.User) error {
	const q = `INSERT INTO users (id, email, role, verified, created_at, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			role = excluded.role,
			verified = excluded.verified,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.Email, string(u.Role), u.Verified,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// Count returns the number of users matching filter.
func (r *UserRepo) Count(ctx context.Context, f outbound.UserFilter) (int64, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Verified != nil {
		clauses = append(clauses, "verified = ?")
		args = append(args, *f.Verified)
	}
	q := "SELECT COUNT(*) FROM users"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lemon-sso/internal/model"
)

const userColumns = `id, username, password_hash,
	access_value, refresh_value, access_lifetime_seconds, refresh_lifetime_seconds,
	token_valid, token_created_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	return r.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) FindByAccessToken(ctx context.Context, value string) (model.User, error) {
	return r.findOne(ctx, "find user by access token", `SELECT `+userColumns+` FROM users WHERE access_value = $1`, value)
}

func (r *UserRepository) FindByRefreshToken(ctx context.Context, value string) (model.User, error) {
	return r.findOne(ctx, "find user by refresh token", `SELECT `+userColumns+` FROM users WHERE refresh_value = $1`, value)
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	cols := tokenColumns(u.Token)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Username, u.PasswordHash,
		cols.access, cols.refresh, cols.accessSeconds, cols.refreshSeconds, cols.valid, cols.createdAt,
		u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, u model.User) error {
	cols := tokenColumns(u.Token)
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, password_hash = $3,
		        access_value = $4, refresh_value = $5,
		        access_lifetime_seconds = $6, refresh_lifetime_seconds = $7,
		        token_valid = $8, token_created_at = $9, updated_at = $10
		 WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash,
		cols.access, cols.refresh, cols.accessSeconds, cols.refreshSeconds, cols.valid, cols.createdAt,
		u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SwapToken is a conditional UPDATE: the row only changes while its refresh
// value still matches expectedRefresh.
func (r *UserRepository) SwapToken(ctx context.Context, userID string, expectedRefresh string, next *model.TokenPair, updatedAt time.Time) error {
	var expected *string
	if expectedRefresh != "" {
		expected = &expectedRefresh
	}

	cols := tokenColumns(next)
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET access_value = $3, refresh_value = $4,
		        access_lifetime_seconds = $5, refresh_lifetime_seconds = $6,
		        token_valid = $7, token_created_at = $8, updated_at = $9
		 WHERE id = $1 AND refresh_value IS NOT DISTINCT FROM $2`,
		userID, expected,
		cols.access, cols.refresh, cols.accessSeconds, cols.refreshSeconds, cols.valid, cols.createdAt,
		updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("swap token: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return model.ErrUserNotFound
	}
	return model.ErrTokenConflict
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, op string, query string, arg string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u              model.User
		access         *string
		refresh        *string
		accessSeconds  *float64
		refreshSeconds *float64
		valid          *bool
		tokenCreated   *time.Time
	)

	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash,
		&access, &refresh, &accessSeconds, &refreshSeconds,
		&valid, &tokenCreated, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}

	if access != nil && refresh != nil {
		pair := model.TokenPair{AccessValue: *access, RefreshValue: *refresh}
		if accessSeconds != nil {
			pair.AccessLifetime = secondsToDuration(*accessSeconds)
		}
		if refreshSeconds != nil {
			pair.RefreshLifetime = secondsToDuration(*refreshSeconds)
		}
		if valid != nil {
			pair.Valid = *valid
		}
		if tokenCreated != nil {
			pair.CreatedAt = tokenCreated.UTC()
		}
		u.Token = &pair
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

type tokenRow struct {
	access         *string
	refresh        *string
	accessSeconds  *float64
	refreshSeconds *float64
	valid          *bool
	createdAt      *time.Time
}

// tokenColumns flattens a pair into nullable columns; nil clears them all.
func tokenColumns(pair *model.TokenPair) tokenRow {
	if pair == nil {
		return tokenRow{}
	}
	accessSeconds := pair.AccessLifetime.Seconds()
	refreshSeconds := pair.RefreshLifetime.Seconds()
	created := pair.CreatedAt.UTC()
	return tokenRow{
		access:         &pair.AccessValue,
		refresh:        &pair.RefreshValue,
		accessSeconds:  &accessSeconds,
		refreshSeconds: &refreshSeconds,
		valid:          &pair.Valid,
		createdAt:      &created,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	const insertUser = `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at, updated_at
	`
	var user User
	err := s.db.QueryRowContext(ctx, insertUser, email, passwordHash).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, userID)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (User, error) {
	query := `SELECT id, email, password_hash, created_at, updated_at FROM users ` + where
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

const tableColumns = `id, data, columns, created_at, updated_at`

// LatestTable returns the most recently created record.
func (s *PostgresStore) LatestTable(ctx context.Context) (TableRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tableColumns+`
		FROM table_data
		ORDER BY created_at DESC
		LIMIT 1
	`)
	return scanTable(row, "latest table")
}

// tableID canonicalizes a record id. Ids that are not UUIDs cannot name a
// row, so they are reported as not found instead of reaching the uuid column.
func tableID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return parsed.String(), nil
}

func (s *PostgresStore) GetTable(ctx context.Context, id string) (TableRecord, error) {
	id, err := tableID(id)
	if err != nil {
		return TableRecord{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM table_data WHERE id = $1`, id)
	return scanTable(row, "get table")
}

func (s *PostgresStore) InsertTable(ctx context.Context, data, columns json.RawMessage) (TableRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO table_data (data, columns)
		VALUES ($1::jsonb, $2::jsonb)
		RETURNING `+tableColumns,
		string(data), string(columns))
	return scanTable(row, "insert table")
}

// UpdateTable replaces data and columns of one record. A zero updatedAt
// stamps the database clock.
func (s *PostgresStore) UpdateTable(ctx context.Context, id string, data, columns json.RawMessage, updatedAt time.Time) (TableRecord, error) {
	id, err := tableID(id)
	if err != nil {
		return TableRecord{}, err
	}
	var stamp any
	if !updatedAt.IsZero() {
		stamp = updatedAt
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE table_data
		SET data = $2::jsonb, columns = $3::jsonb, updated_at = COALESCE($4, NOW())
		WHERE id = $1
		RETURNING `+tableColumns,
		id, string(data), string(columns), stamp)
	return scanTable(row, "update table")
}

func scanTable(row *sql.Row, op string) (TableRecord, error) {
	var rec TableRecord
	var data, columns []byte
	err := row.Scan(&rec.ID, &data, &columns, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TableRecord{}, ErrNotFound
	}
	if err != nil {
		return TableRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	rec.Data = json.RawMessage(data)
	rec.Columns = json.RawMessage(columns)
	return rec, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

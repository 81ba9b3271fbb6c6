package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// SessionRepository handles database operations for session tokens.
type SessionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new session repository.
func NewSessionRepository(pool *pgxpool.Pool) ports.SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	query := `
		INSERT INTO sessions (user_id, token, created_at, expires_at, device_info)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, token, created_at, expires_at, device_info
	`

	created := &domain.Session{}
	err := r.db(ctx).QueryRow(ctx, query,
		session.UserID, session.Token, session.CreatedAt, session.ExpiresAt, session.DeviceInfo,
	).Scan(&created.ID, &created.UserID, &created.Token, &created.CreatedAt, &created.ExpiresAt, &created.DeviceInfo)
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at, device_info
		FROM sessions
		WHERE token = $1
	`

	session := &domain.Session{}
	err := r.db(ctx).QueryRow(ctx, query, token).
		Scan(&session.ID, &session.UserID, &session.Token, &session.CreatedAt, &session.ExpiresAt, &session.DeviceInfo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepository) ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `UPDATE sessions SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteExpired removes expired sessions, returning how many were deleted.
// Run periodically; expired sessions are also deleted lazily on validation.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

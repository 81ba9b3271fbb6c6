package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// MessageRepository handles database operations for messages. Reads join the
// author row so event payloads and API responses never need a second query.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new message repository.
func NewMessageRepository(pool *pgxpool.Pool) ports.MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	message := &domain.Message{}
	var authorID uuid.UUID
	err := row.Scan(
		&message.ID, &message.RoomID, &message.UserID, &message.Content, &message.CreatedAt,
		&authorID, &message.Author.Username, &message.Author.Avatar,
	)
	if err != nil {
		return nil, err
	}
	message.Author.ID = authorID.String()
	return message, nil
}

const messageColumns = `
	m.id, m.room_id, m.user_id, m.content, m.created_at,
	u.id, u.username, u.avatar
`

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	query := `
		WITH inserted AS (
			INSERT INTO messages (room_id, user_id, content, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, room_id, user_id, content, created_at
		)
		SELECT m.id, m.room_id, m.user_id, m.content, m.created_at,
		       u.id, u.username, u.avatar
		FROM inserted m
		INNER JOIN users u ON u.id = m.user_id
	`

	created, err := scanMessage(r.db(ctx).QueryRow(ctx, query,
		message.RoomID, message.UserID, message.Content, message.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, err
	}

	return created, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`

	message, err := scanMessage(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, err
	}

	return message, nil
}

func (r *MessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db(ctx).Query(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *MessageRepository) Update(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	query := `
		WITH updated AS (
			UPDATE messages SET content = $2
			WHERE id = $1
			RETURNING id, room_id, user_id, content, created_at
		)
		SELECT m.id, m.room_id, m.user_id, m.content, m.created_at,
		       u.id, u.username, u.avatar
		FROM updated m
		INNER JOIN users u ON u.id = m.user_id
	`

	updated, err := scanMessage(r.db(ctx).QueryRow(ctx, query, message.ID, message.Content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, err
	}

	return updated, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMessageNotFound
	}
	return nil
}

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

// ReactionRepository handles database operations for message reactions.
type ReactionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ReactionRepository = (*ReactionRepository)(nil)

// NewReactionRepository creates a new reaction repository.
func NewReactionRepository(pool *pgxpool.Pool) ports.ReactionRepository {
	return &ReactionRepository{pool: pool}
}

func (r *ReactionRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func scanReaction(row pgx.Row) (*domain.Reaction, error) {
	reaction := &domain.Reaction{}
	var reactorID uuid.UUID
	err := row.Scan(
		&reaction.ID, &reaction.MessageID, &reaction.UserID, &reaction.Type, &reaction.CreatedAt,
		&reactorID, &reaction.Reactor.Username, &reaction.Reactor.Avatar,
	)
	if err != nil {
		return nil, err
	}
	reaction.Reactor.ID = reactorID.String()
	return reaction, nil
}

const reactionColumns = `
	re.id, re.message_id, re.user_id, re.type, re.created_at,
	u.id, u.username, u.avatar
`

func (r *ReactionRepository) Create(ctx context.Context, reaction *domain.Reaction) (*domain.Reaction, error) {
	query := `
		WITH inserted AS (
			INSERT INTO reactions (message_id, user_id, type, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, message_id, user_id, type, created_at
		)
		SELECT re.id, re.message_id, re.user_id, re.type, re.created_at,
		       u.id, u.username, u.avatar
		FROM inserted re
		INNER JOIN users u ON u.id = re.user_id
	`

	created, err := scanReaction(r.db(ctx).QueryRow(ctx, query,
		reaction.MessageID, reaction.UserID, reaction.Type, reaction.CreatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, apperrors.ErrDuplicateReaction
			case pgForeignKeyViolation:
				return nil, apperrors.ErrMessageNotFound
			}
		}
		return nil, err
	}

	return created, nil
}

func (r *ReactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reaction, error) {
	query := `
		SELECT ` + reactionColumns + `
		FROM reactions re
		INNER JOIN users u ON u.id = re.user_id
		WHERE re.id = $1
	`

	reaction, err := scanReaction(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReactionNotFound
		}
		return nil, err
	}

	return reaction, nil
}

func (r *ReactionRepository) Find(ctx context.Context, messageID, userID uuid.UUID, reactionType string) (*domain.Reaction, error) {
	query := `
		SELECT ` + reactionColumns + `
		FROM reactions re
		INNER JOIN users u ON u.id = re.user_id
		WHERE re.message_id = $1 AND re.user_id = $2 AND re.type = $3
	`

	reaction, err := scanReaction(r.db(ctx).QueryRow(ctx, query, messageID, userID, reactionType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReactionNotFound
		}
		return nil, err
	}

	return reaction, nil
}

func (r *ReactionRepository) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*domain.Reaction, error) {
	query := `
		SELECT ` + reactionColumns + `
		FROM reactions re
		INNER JOIN users u ON u.id = re.user_id
		WHERE re.message_id = $1
		ORDER BY re.created_at
	`

	rows, err := r.db(ctx).Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := make([]*domain.Reaction, 0)
	for rows.Next() {
		reaction, err := scanReaction(rows)
		if err != nil {
			return nil, err
		}
		reactions = append(reactions, reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reactions, nil
}

func (r *ReactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrReactionNotFound
	}
	return nil
}

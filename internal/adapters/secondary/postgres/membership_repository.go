package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// MembershipRepository handles database operations for the room membership
// relation. This table is the source of truth the authorization gate and
// presence roster read from.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MembershipRepository = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new membership repository.
func NewMembershipRepository(pool *pgxpool.Pool) ports.MembershipRepository {
	return &MembershipRepository{pool: pool}
}

func (r *MembershipRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func (r *MembershipRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2
		)
	`

	var exists bool
	if err := r.db(ctx).QueryRow(ctx, query, roomID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *MembershipRepository) Add(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	query := `
		INSERT INTO room_members (room_id, user_id, joined_at)
		VALUES ($1, $2, now())
		RETURNING room_id, user_id, joined_at
	`

	membership := &domain.Membership{}
	err := r.db(ctx).QueryRow(ctx, query, roomID, userID).
		Scan(&membership.RoomID, &membership.UserID, &membership.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, apperrors.ErrAlreadyMember
			case pgForeignKeyViolation:
				return nil, apperrors.ErrRoomNotFound
			}
		}
		return nil, err
	}

	return membership, nil
}

func (r *MembershipRepository) Remove(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MembershipRepository) ListMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.avatar, u.hashed_password, u.created_at
		FROM users u
		INNER JOIN room_members rm ON rm.user_id = u.id
		WHERE rm.room_id = $1
		ORDER BY rm.joined_at
	`

	rows, err := r.db(ctx).Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Avatar, &user.HashedPassword, &user.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

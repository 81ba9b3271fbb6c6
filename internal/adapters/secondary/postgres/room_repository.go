package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// RoomRepository handles database operations for rooms.
type RoomRepository struct {
	pool *pgxpool.Pool
}

var _ ports.RoomRepository = (*RoomRepository)(nil)

// NewRoomRepository creates a new room repository.
func NewRoomRepository(pool *pgxpool.Pool) ports.RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) db(ctx context.Context) DBTX {
	return GetDBTX(ctx, r.pool)
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	query := `
		INSERT INTO rooms (name, description, visibility, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, visibility, created_at
	`

	created := &domain.Room{}
	err := r.db(ctx).QueryRow(ctx, query,
		room.Name, room.Description, string(room.Visibility), room.CreatedAt,
	).Scan(&created.ID, &created.Name, &created.Description, &created.Visibility, &created.CreatedAt)
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	query := `
		SELECT id, name, description, visibility, created_at
		FROM rooms
		WHERE id = $1
	`

	room := &domain.Room{}
	err := r.db(ctx).QueryRow(ctx, query, id).
		Scan(&room.ID, &room.Name, &room.Description, &room.Visibility, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, err
	}

	return room, nil
}

// ListAccessibleTo returns every public room plus the private rooms the user
// belongs to.
func (r *RoomRepository) ListAccessibleTo(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	query := `
		SELECT DISTINCT r.id, r.name, r.description, r.visibility, r.created_at
		FROM rooms r
		LEFT JOIN room_members rm ON rm.room_id = r.id AND rm.user_id = $1
		WHERE r.visibility = 'public' OR rm.user_id IS NOT NULL
		ORDER BY r.created_at
	`

	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*domain.Room, 0)
	for rows.Next() {
		room := &domain.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.Visibility, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *RoomRepository) Update(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	query := `
		UPDATE rooms
		SET name = $2, description = $3
		WHERE id = $1
		RETURNING id, name, description, visibility, created_at
	`

	updated := &domain.Room{}
	err := r.db(ctx).QueryRow(ctx, query, room.ID, room.Name, room.Description).
		Scan(&updated.ID, &updated.Name, &updated.Description, &updated.Visibility, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, err
	}

	return updated, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoomNotFound
	}
	return nil
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// In-memory fakes shared by the service tests in this package.

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type capturePublisher struct {
	events []domain.Event
	err    error
	ops    *[]string
}

func (p *capturePublisher) Publish(event domain.Event) error {
	if p.ops != nil {
		*p.ops = append(*p.ops, "publish")
	}
	p.events = append(p.events, event)
	return p.err
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	stored := *user
	stored.ID = uuid.New()
	f.users[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) List(_ context.Context, limit, _ int) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(f.users))
	for _, user := range f.users {
		if len(users) == limit {
			break
		}
		users = append(users, user)
	}
	return users, nil
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *domain.Session) (*domain.Session, error) {
	stored := *session
	stored.ID = uuid.New()
	f.sessions[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeSessionRepo) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	for _, session := range f.sessions {
		if session.Token == token {
			return session, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeSessionRepo) DeleteByToken(_ context.Context, token string) error {
	for id, session := range f.sessions {
		if session.Token == token {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessionRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) ExtendExpiry(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var deleted int64
	for id, session := range f.sessions {
		if session.IsExpired() {
			delete(f.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeRoomRepo struct {
	rooms map[uuid.UUID]*domain.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[uuid.UUID]*domain.Room)}
}

func (f *fakeRoomRepo) add(room *domain.Room) *domain.Room {
	stored := *room
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	f.rooms[stored.ID] = &stored
	return &stored
}

func (f *fakeRoomRepo) Create(_ context.Context, room *domain.Room) (*domain.Room, error) {
	return f.add(room), nil
}

func (f *fakeRoomRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) ListAccessibleTo(_ context.Context, _ uuid.UUID) ([]*domain.Room, error) {
	rooms := make([]*domain.Room, 0, len(f.rooms))
	for _, room := range f.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (f *fakeRoomRepo) Update(_ context.Context, room *domain.Room) (*domain.Room, error) {
	if _, ok := f.rooms[room.ID]; !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	stored := *room
	f.rooms[room.ID] = &stored
	return &stored, nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rooms[id]; !ok {
		return apperrors.ErrRoomNotFound
	}
	delete(f.rooms, id)
	return nil
}

type fakeMembershipRepo struct {
	members map[uuid.UUID]map[uuid.UUID]bool
	users   *fakeUserRepo
}

func newFakeMembershipRepo(users *fakeUserRepo) *fakeMembershipRepo {
	return &fakeMembershipRepo{
		members: make(map[uuid.UUID]map[uuid.UUID]bool),
		users:   users,
	}
}

func (f *fakeMembershipRepo) IsMember(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	return f.members[roomID][userID], nil
}

func (f *fakeMembershipRepo) Add(_ context.Context, roomID, userID uuid.UUID) (*domain.Membership, error) {
	if f.members[roomID] == nil {
		f.members[roomID] = make(map[uuid.UUID]bool)
	}
	if f.members[roomID][userID] {
		return nil, apperrors.ErrAlreadyMember
	}
	f.members[roomID][userID] = true
	return &domain.Membership{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}, nil
}

func (f *fakeMembershipRepo) Remove(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	if !f.members[roomID][userID] {
		return false, nil
	}
	delete(f.members[roomID], userID)
	return true, nil
}

func (f *fakeMembershipRepo) ListMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.User, error) {
	members := make([]*domain.User, 0, len(f.members[roomID]))
	for userID := range f.members[roomID] {
		if f.users == nil {
			members = append(members, &domain.User{ID: userID})
			continue
		}
		user, err := f.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		members = append(members, user)
	}
	return members, nil
}

type fakeMessageRepo struct {
	messages  map[uuid.UUID]*domain.Message
	ops       *[]string
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, message *domain.Message) (*domain.Message, error) {
	if f.ops != nil {
		*f.ops = append(*f.ops, "create")
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *message
	stored.ID = uuid.New()
	f.messages[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	message, ok := f.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (f *fakeMessageRepo) ListByRoom(_ context.Context, roomID uuid.UUID, limit, _ int) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0)
	for _, message := range f.messages {
		if message.RoomID != roomID {
			continue
		}
		if len(messages) == limit {
			break
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (f *fakeMessageRepo) Update(_ context.Context, message *domain.Message) (*domain.Message, error) {
	if _, ok := f.messages[message.ID]; !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	stored := *message
	f.messages[message.ID] = &stored
	return &stored, nil
}

func (f *fakeMessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.messages[id]; !ok {
		return apperrors.ErrMessageNotFound
	}
	delete(f.messages, id)
	return nil
}

type fakeReactionRepo struct {
	reactions map[uuid.UUID]*domain.Reaction
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{reactions: make(map[uuid.UUID]*domain.Reaction)}
}

func (f *fakeReactionRepo) Create(ctx context.Context, reaction *domain.Reaction) (*domain.Reaction, error) {
	if existing, err := f.Find(ctx, reaction.MessageID, reaction.UserID, reaction.Type); err == nil && existing != nil {
		return nil, apperrors.ErrDuplicateReaction
	}
	stored := *reaction
	stored.ID = uuid.New()
	f.reactions[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeReactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Reaction, error) {
	reaction, ok := f.reactions[id]
	if !ok {
		return nil, apperrors.ErrReactionNotFound
	}
	return reaction, nil
}

func (f *fakeReactionRepo) Find(_ context.Context, messageID, userID uuid.UUID, reactionType string) (*domain.Reaction, error) {
	for _, reaction := range f.reactions {
		if reaction.MessageID == messageID && reaction.UserID == userID && reaction.Type == reactionType {
			return reaction, nil
		}
	}
	return nil, apperrors.ErrReactionNotFound
}

func (f *fakeReactionRepo) ListByMessage(_ context.Context, messageID uuid.UUID) ([]*domain.Reaction, error) {
	reactions := make([]*domain.Reaction, 0)
	for _, reaction := range f.reactions {
		if reaction.MessageID == messageID {
			reactions = append(reactions, reaction)
		}
	}
	return reactions, nil
}

func (f *fakeReactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.reactions[id]; !ok {
		return apperrors.ErrReactionNotFound
	}
	delete(f.reactions, id)
	return nil
}

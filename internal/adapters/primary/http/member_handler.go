package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// MemberHandler handles HTTP requests for room membership
type MemberHandler struct {
	membershipService ports.MembershipService
	errorHandler      *ErrorHandler
	logger            *slog.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(
	membershipService ports.MembershipService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MemberHandler {
	return &MemberHandler{
		membershipService: membershipService,
		errorHandler:      errorHandler,
		logger:            logger.With("handler", "member"),
	}
}

// RegisterRoutes sets up the routing for membership endpoints. Mounted
// under /rooms/{roomID}/members.
func (h *MemberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListMembers)
	r.Post("/", h.HandleJoinRoom)
	r.Delete("/{userID}", h.HandleLeaveRoom)
}

// HandleListMembers handles GET /rooms/{roomID}/members
func (h *MemberHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	members, err := h.membershipService.ListMembers(r.Context(), roomID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toUserDTOs(members))
}

// HandleJoinRoom handles POST /rooms/{roomID}/members. Users can only
// enroll themselves; the membership service rejects joins on behalf of
// someone else.
func (h *MemberHandler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	membership, err := h.membershipService.Add(r.Context(), roomID, user.ID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user joined room",
		"room_id", roomID,
		"user_id", user.ID,
	)

	WriteCreated(w, MembershipDTO{
		RoomID:   membership.RoomID.String(),
		UserID:   membership.UserID.String(),
		JoinedAt: membership.JoinedAt.Format(time.RFC3339),
	})
}

// HandleLeaveRoom handles DELETE /rooms/{roomID}/members/{userID}
func (h *MemberHandler) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	removed, err := h.membershipService.Remove(r.Context(), roomID, userID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if removed {
		h.logger.Info("user left room",
			"room_id", roomID,
			"user_id", userID,
		)
	}

	WriteNoContent(w)
}

// MembershipDTO defines the JSON response for a membership record.
type MembershipDTO struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	JoinedAt string `json:"joinedAt"`
}

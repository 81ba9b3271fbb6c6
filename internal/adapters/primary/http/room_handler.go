package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parleyhq/chat-backend/internal/adapters/primary/validation"
	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
	"github.com/samber/lo"
)

// RoomHandler handles HTTP requests for rooms
type RoomHandler struct {
	roomService    ports.RoomService
	memberHandler  *MemberHandler
	messageHandler *MessageHandler
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(
	roomService ports.RoomService,
	memberHandler *MemberHandler,
	messageHandler *MessageHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *RoomHandler {
	return &RoomHandler{
		roomService:    roomService,
		memberHandler:  memberHandler,
		messageHandler: messageHandler,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "room"),
	}
}

// RegisterRoutes sets up the routing for all room endpoints.
func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListRooms)
	r.Post("/", h.HandleCreateRoom)

	r.Route("/{roomID}", func(r chi.Router) {
		r.Get("/", h.HandleGetRoom)
		r.Patch("/", h.HandleUpdateRoom)
		r.Delete("/", h.HandleDeleteRoom)

		if h.memberHandler != nil {
			r.Route("/members", h.memberHandler.RegisterRoutes)
		}
		if h.messageHandler != nil {
			r.Route("/messages", h.messageHandler.RegisterRoomRoutes)
		}
	})
}

// --- Request/Response DTOs ---

// CreateRoomRequest defines the expected JSON body for creating a room
type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

// Validate validates the create room request
func (r *CreateRoomRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxRoomNameLength)

	v.OneOf("visibility", r.Visibility, []string{
		string(domain.VisibilityPublic),
		string(domain.VisibilityPrivate),
	})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateRoomRequest defines the expected JSON body for updating a room.
// Absent fields are left unchanged.
type UpdateRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Validate validates the update room request
func (r *UpdateRoomRequest) Validate() error {
	v := validation.NewValidator()

	if r.Name != nil {
		v.Required("name", *r.Name).
			MaxLength("name", *r.Name, domain.MaxRoomNameLength)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// RoomDTO defines the JSON response for rooms.
type RoomDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	CreatedAt   string `json:"createdAt"`
}

func toRoomDTO(room *domain.Room) RoomDTO {
	return RoomDTO{
		ID:          room.ID.String(),
		Name:        room.Name,
		Description: room.Description,
		Visibility:  string(room.Visibility),
		CreatedAt:   room.CreatedAt.Format(time.RFC3339),
	}
}

func toRoomDTOs(rooms []*domain.Room) []RoomDTO {
	return lo.Map(rooms, func(room *domain.Room, _ int) RoomDTO {
		return toRoomDTO(room)
	})
}

// --- Handlers ---

// HandleListRooms handles GET /rooms
func (h *RoomHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	rooms, err := h.roomService.ListRooms(r.Context(), user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toRoomDTOs(rooms))
}

// HandleCreateRoom handles POST /rooms
func (h *RoomHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateRoomRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateRoomParams{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  domain.RoomVisibility(req.Visibility),
		CreatorID:   user.ID,
	}

	room, err := h.roomService.CreateRoom(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("room created",
		"room_id", room.ID,
		"user_id", user.ID,
	)

	WriteCreated(w, toRoomDTO(room))
}

// HandleGetRoom handles GET /rooms/{roomID}
func (h *RoomHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toRoomDTO(room))
}

// HandleUpdateRoom handles PATCH /rooms/{roomID}
func (h *RoomHandler) HandleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateRoomRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateRoomParams{
		RoomID:      roomID,
		ActorID:     user.ID,
		Name:        req.Name,
		Description: req.Description,
	}

	room, err := h.roomService.UpdateRoom(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("room updated",
		"room_id", roomID,
		"user_id", user.ID,
	)

	WriteJSON(w, http.StatusOK, toRoomDTO(room))
}

// HandleDeleteRoom handles DELETE /rooms/{roomID}
func (h *RoomHandler) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.roomService.DeleteRoom(r.Context(), roomID, user.ID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("room deleted",
		"room_id", roomID,
		"user_id", user.ID,
	)

	WriteNoContent(w)
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/parleyhq/chat-backend/internal/adapters/primary/validation"
	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
	"github.com/parleyhq/chat-backend/internal/core/services"
)

// SocketIDHeader carries the sender's live connection ID so fan-out can
// suppress the echo back to that connection.
const SocketIDHeader = "X-Socket-ID"

// MessageHandler handles HTTP requests for messages
type MessageHandler struct {
	messageService  ports.MessageService
	reactionHandler *ReactionHandler
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	messageService ports.MessageService,
	reactionHandler *ReactionHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		reactionHandler: reactionHandler,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "message"),
	}
}

// RegisterRoomRoutes sets up the room-scoped message endpoints. Mounted
// under /rooms/{roomID}/messages.
func (h *MessageHandler) RegisterRoomRoutes(r chi.Router) {
	r.Get("/", h.HandleListRoomMessages)
	r.Post("/", h.HandleCreateMessage)
}

// RegisterRoutes sets up the message-scoped endpoints. Mounted under
// /messages.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/", h.HandleGetMessage)
		r.Patch("/", h.HandleUpdateMessage)
		r.Delete("/", h.HandleDeleteMessage)

		if h.reactionHandler != nil {
			r.Route("/reactions", h.reactionHandler.RegisterMessageRoutes)
		}
	})
}

// --- Request/Response DTOs ---

// CreateMessageRequest defines the expected JSON body for sending a message
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// Validate validates the create message request
func (r *CreateMessageRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("content", r.Content).
		MaxLength("content", r.Content, domain.MaxMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateMessageRequest defines the expected JSON body for editing a message
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// Validate validates the update message request
func (r *UpdateMessageRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("content", r.Content).
		MaxLength("content", r.Content, domain.MaxMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MessageDTO defines the JSON response for messages.
type MessageDTO struct {
	ID        string              `json:"id"`
	RoomID    string              `json:"roomId"`
	Content   string              `json:"content"`
	CreatedAt string              `json:"createdAt"`
	User      domain.UserSnapshot `json:"user"`
}

func toMessageDTO(message *domain.Message) MessageDTO {
	return MessageDTO{
		ID:        message.ID.String(),
		RoomID:    message.RoomID.String(),
		Content:   message.Content,
		CreatedAt: message.CreatedAt.Format(time.RFC3339),
		User:      message.Author,
	}
}

func toMessageDTOs(messages []*domain.Message) []MessageDTO {
	return lo.Map(messages, func(message *domain.Message, _ int) MessageDTO {
		return toMessageDTO(message)
	})
}

// --- Handlers ---

// HandleListRoomMessages handles GET /rooms/{roomID}/messages
func (h *MessageHandler) HandleListRoomMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	pagination := validation.ParsePagination(r, services.MaxMessagePageSize)

	params := ports.ListMessagesParams{
		RoomID:   roomID,
		ViewerID: user.ID,
		Limit:    pagination.Limit + 1,
		Offset:   pagination.Offset,
	}

	messages, err := h.messageService.ListRoomMessages(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// One extra row was requested to learn whether another page exists.
	hasMore := len(messages) > pagination.Limit
	if hasMore {
		messages = messages[:pagination.Limit]
	}

	WritePaginated(w, toMessageDTOs(messages), pagination.Limit, pagination.Offset, hasMore)
}

// HandleCreateMessage handles POST /rooms/{roomID}/messages
func (h *MessageHandler) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	roomID, err := parseUUIDParam(r, "roomID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateMessageRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateMessageParams{
		RoomID:   roomID,
		ActorID:  user.ID,
		Content:  req.Content,
		SocketID: r.Header.Get(SocketIDHeader),
	}

	message, err := h.messageService.CreateMessage(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("message created",
		"message_id", message.ID,
		"room_id", roomID,
		"user_id", user.ID,
	)

	WriteCreated(w, toMessageDTO(message))
}

// HandleGetMessage handles GET /messages/{messageID}
func (h *MessageHandler) HandleGetMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	message, err := h.messageService.GetMessage(r.Context(), messageID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toMessageDTO(message))
}

// HandleUpdateMessage handles PATCH /messages/{messageID}
func (h *MessageHandler) HandleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateMessageRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	message, err := h.messageService.UpdateMessage(r.Context(), messageID, user.ID, req.Content)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("message updated",
		"message_id", messageID,
		"user_id", user.ID,
	)

	WriteJSON(w, http.StatusOK, toMessageDTO(message))
}

// HandleDeleteMessage handles DELETE /messages/{messageID}
func (h *MessageHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.messageService.DeleteMessage(r.Context(), messageID, user.ID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("message deleted",
		"message_id", messageID,
		"user_id", user.ID,
	)

	WriteNoContent(w)
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/parleyhq/chat-backend/internal/adapters/primary/validation"
	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// ReactionHandler handles HTTP requests for message reactions
type ReactionHandler struct {
	reactionService ports.ReactionService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewReactionHandler creates a new reaction handler
func NewReactionHandler(
	reactionService ports.ReactionService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ReactionHandler {
	return &ReactionHandler{
		reactionService: reactionService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "reaction"),
	}
}

// RegisterMessageRoutes sets up the message-scoped reaction endpoints.
// Mounted under /messages/{messageID}/reactions.
func (h *ReactionHandler) RegisterMessageRoutes(r chi.Router) {
	r.Get("/", h.HandleListReactions)
	r.Post("/", h.HandleAddReaction)
	r.Post("/toggle", h.HandleToggleReaction)
}

// RegisterRoutes sets up the reaction-scoped endpoints. Mounted under
// /reactions.
func (h *ReactionHandler) RegisterRoutes(r chi.Router) {
	r.Delete("/{reactionID}", h.HandleRemoveReaction)
}

// --- Request/Response DTOs ---

// ReactionRequest defines the expected JSON body for adding or toggling a
// reaction
type ReactionRequest struct {
	Type string `json:"type"`
}

// Validate validates the reaction request
func (r *ReactionRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("type", r.Type)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ReactionDTO defines the JSON response for reactions.
type ReactionDTO struct {
	ID        string              `json:"id"`
	MessageID string              `json:"messageId"`
	Type      string              `json:"type"`
	Emoji     string              `json:"emoji"`
	User      domain.UserSnapshot `json:"user"`
}

// ToggleReactionResponse reports the state after a toggle.
type ToggleReactionResponse struct {
	Reacted  bool         `json:"reacted"`
	Reaction *ReactionDTO `json:"reaction,omitempty"`
}

func toReactionDTO(reaction *domain.Reaction) ReactionDTO {
	return ReactionDTO{
		ID:        reaction.ID.String(),
		MessageID: reaction.MessageID.String(),
		Type:      reaction.Type,
		Emoji:     reaction.Emoji(),
		User:      reaction.Reactor,
	}
}

func toReactionDTOs(reactions []*domain.Reaction) []ReactionDTO {
	return lo.Map(reactions, func(reaction *domain.Reaction, _ int) ReactionDTO {
		return toReactionDTO(reaction)
	})
}

// --- Handlers ---

// HandleListReactions handles GET /messages/{messageID}/reactions
func (h *ReactionHandler) HandleListReactions(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	reactions, err := h.reactionService.ListMessageReactions(r.Context(), messageID, user.ID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toReactionDTOs(reactions))
}

// HandleAddReaction handles POST /messages/{messageID}/reactions
func (h *ReactionHandler) HandleAddReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ReactionRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.ReactionActionParams{
		MessageID: messageID,
		ActorID:   user.ID,
		Type:      req.Type,
		SocketID:  r.Header.Get(SocketIDHeader),
	}

	reaction, err := h.reactionService.AddReaction(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("reaction added",
		"reaction_id", reaction.ID,
		"message_id", messageID,
		"user_id", user.ID,
	)

	WriteCreated(w, toReactionDTO(reaction))
}

// HandleToggleReaction handles POST /messages/{messageID}/reactions/toggle
func (h *ReactionHandler) HandleToggleReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	messageID, err := parseUUIDParam(r, "messageID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ReactionRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.ReactionActionParams{
		MessageID: messageID,
		ActorID:   user.ID,
		Type:      req.Type,
		SocketID:  r.Header.Get(SocketIDHeader),
	}

	reaction, reacted, err := h.reactionService.ToggleReaction(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := ToggleReactionResponse{Reacted: reacted}
	if reacted {
		dto := toReactionDTO(reaction)
		response.Reaction = &dto
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleRemoveReaction handles DELETE /reactions/{reactionID}
func (h *ReactionHandler) HandleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	reactionID, err := parseUUIDParam(r, "reactionID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	socketID := r.Header.Get(SocketIDHeader)

	if err := h.reactionService.RemoveReaction(r.Context(), reactionID, user.ID, socketID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("reaction removed",
		"reaction_id", reactionID,
		"user_id", user.ID,
	)

	WriteNoContent(w)
}

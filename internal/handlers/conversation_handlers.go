package handlers

import (
	"encoding/json"
	"net/http"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/services"
	"glammatch-backend/pkg/httputil"
)

// ConversationHandlers handles HTTP requests related to conversations.
type ConversationHandlers struct {
	conversationService *services.ConversationService
}

// NewConversationHandlers creates a new ConversationHandlers instance.
func NewConversationHandlers(conversationService *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{
		conversationService: conversationService,
	}
}

// HandleCreateConversation handles POST /v1/conversations.
func (h *ConversationHandlers) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	ctype := models.ConversationTypePrivate
	if req.Type != nil {
		ctype = *req.Type
	}

	conv, err := h.conversationService.Create(r.Context(), userID, req.Participants, ctype)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.ConversationView(conv, userID))
}

// HandleListConversations handles GET /v1/conversations.
func (h *ConversationHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversations, err := h.conversationService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := models.ListConversationsResponse{
		Conversations: models.ConversationViews(conversations, userID),
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetConversation handles GET /v1/conversations/{conversationID}.
func (h *ConversationHandlers) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversationID, err := conversationIDParam(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	conv, err := h.conversationService.Get(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ConversationView(conv, userID))
}

// HandleMarkRead handles POST /v1/conversations/{conversationID}/read.
func (h *ConversationHandlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversationID, err := conversationIDParam(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	updated, err := h.conversationService.MarkRead(r.Context(), conversationID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.MarkReadResponse{MessagesMarked: updated})
}

// HandleMarkDelivered handles POST /v1/conversations/{conversationID}/delivered.
func (h *ConversationHandlers) HandleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversationID, err := conversationIDParam(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	updated, err := h.conversationService.MarkDelivered(r.Context(), conversationID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.MarkDeliveredResponse{MessagesMarked: updated})
}

// HandleReconcile handles POST /v1/conversations/{conversationID}/reconcile.
// It re-derives the conversation's denormalized summary from its messages.
func (h *ConversationHandlers) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conversationID, err := conversationIDParam(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID")
		return
	}

	conv, err := h.conversationService.Reconcile(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ConversationView(conv, userID))
}

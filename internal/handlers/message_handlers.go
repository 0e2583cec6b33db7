package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/services"
	"glammatch-backend/pkg/httputil"
)

// MessageHandlers handles HTTP requests related to messages.
type MessageHandlers struct {
	messageService *services.MessageService
}

// NewMessageHandlers creates a new MessageHandlers instance.
func NewMessageHandlers(messageService *services.MessageService) *MessageHandlers {
	return &MessageHandlers{
		messageService: messageService,
	}
}

// HandleSendMessage handles POST /v1/conversations/{conversationID}/messages.
func (h *MessageHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
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

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	in := services.SendMessageInput{
		ConversationID: conversationID,
		SenderID:       userID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	if req.ClientKey != nil {
		in.ClientKey = *req.ClientKey
	}

	msg, err := h.messageService.Send(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, msg)
}

// HandleListMessages handles GET /v1/conversations/{conversationID}/messages.
// Query parameters: page_size (bounded), before (RFC3339Nano continuation cursor).
func (h *MessageHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
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

	pageSize := 0
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid page_size")
			return
		}
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		cursor, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid before cursor")
			return
		}
		before = &cursor
	}

	messages, next, err := h.messageService.List(r.Context(), userID, conversationID, pageSize, before)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ListMessagesResponse{
		Messages:   messages,
		NextCursor: next,
	})
}

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"glammatch-backend/internal/models"
	"glammatch-backend/internal/realtime"
	"glammatch-backend/internal/services"
	"glammatch-backend/pkg/httputil"

	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedHandlers exposes the realtime notifier over websockets: one endpoint
// streams the caller's conversation list, the other streams a conversation's
// message list. Each frame is a full JSON snapshot.
type FeedHandlers struct {
	conversationService *services.ConversationService
	messageService      *services.MessageService
	upgrader            websocket.Upgrader
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(conversationService *services.ConversationService, messageService *services.MessageService) *FeedHandlers {
	return &FeedHandlers{
		conversationService: conversationService,
		messageService:      messageService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin enforcement happens in the CORS layer for the REST
			// surface; the feed relies on token auth instead.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConversationFeed handles GET /v1/ws/conversations.
func (h *FeedHandlers) HandleConversationFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN [FeedHandlers] conversation feed upgrade failed for %s: %v", userID, err)
		return
	}

	frames := make(chan []byte, 16)
	cancel, err := h.conversationService.Subscribe(r.Context(), userID, func(list []models.Conversation) {
		payload, err := json.Marshal(models.ListConversationsResponse{
			Conversations: models.ConversationViews(list, userID),
		})
		if err != nil {
			log.Printf("ERROR [FeedHandlers] encoding conversation feed frame: %v", err)
			return
		}
		queueFrame(frames, payload)
	})
	if err != nil {
		conn.Close()
		return
	}

	log.Printf("[FeedHandlers] conversation feed open for user %s", userID)
	h.serveFeed(conn, frames, cancel)
	log.Printf("[FeedHandlers] conversation feed closed for user %s", userID)
}

// HandleMessageFeed handles GET /v1/ws/conversations/{conversationID}/messages.
func (h *FeedHandlers) HandleMessageFeed(w http.ResponseWriter, r *http.Request) {
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

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN [FeedHandlers] message feed upgrade failed for %s: %v", conversationID, err)
		return
	}

	frames := make(chan []byte, 16)
	cancel, err := h.messageService.Subscribe(r.Context(), userID, conversationID, func(msgs []models.Message) {
		payload, err := json.Marshal(models.ListMessagesResponse{Messages: msgs})
		if err != nil {
			log.Printf("ERROR [FeedHandlers] encoding message feed frame: %v", err)
			return
		}
		queueFrame(frames, payload)
	})
	if err != nil {
		// Subscription refused (e.g. not a participant): report over the
		// socket before closing so the client sees why.
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscription refused"),
			time.Now().Add(feedWriteWait))
		conn.Close()
		return
	}

	h.serveFeed(conn, frames, cancel)
}

// queueFrame enqueues a snapshot frame without blocking the notifier. When
// the client is slower than the feed, the oldest pending frame is discarded;
// every frame carries a full snapshot, so the newest one wins.
func queueFrame(frames chan []byte, payload []byte) {
	select {
	case frames <- payload:
		return
	default:
	}
	select {
	case <-frames:
	default:
	}
	select {
	case frames <- payload:
	default:
	}
}

// serveFeed pumps snapshot frames to the client until it disconnects.
// The read loop exists only to observe the close handshake.
func (h *FeedHandlers) serveFeed(conn *websocket.Conn, frames chan []byte, cancel realtime.CancelFunc) {
	defer cancel()
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-frames:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

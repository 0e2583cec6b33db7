package api

import (
	"log"
	"net/http"
	"time"

	"glammatch-backend/internal/config"
	"glammatch-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	ConversationHandler *handlers.ConversationHandlers
	MessageHandler      *handlers.MessageHandlers
	FeedHandler         *handlers.FeedHandlers
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:19006", "https://*.glammatch.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Conversation + Message Routes ---
		if deps.ConversationHandler != nil && deps.MessageHandler != nil {
			// Request timeout applies to the plain CRUD surface only; the
			// websocket feeds below hold their connections open.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))

				r.Route("/conversations", func(r chi.Router) {
					r.Post("/", deps.ConversationHandler.HandleCreateConversation)
					r.Get("/", deps.ConversationHandler.HandleListConversations)
					r.Get("/{conversationID}", deps.ConversationHandler.HandleGetConversation)
					r.Post("/{conversationID}/read", deps.ConversationHandler.HandleMarkRead)
					r.Post("/{conversationID}/delivered", deps.ConversationHandler.HandleMarkDelivered)
					r.Post("/{conversationID}/reconcile", deps.ConversationHandler.HandleReconcile)

					// Message APIs
					r.Post("/{conversationID}/messages", deps.MessageHandler.HandleSendMessage)
					r.Get("/{conversationID}/messages", deps.MessageHandler.HandleListMessages)
				})
			})
		} else {
			log.Println("WARN: Conversation/Message handler dependency is nil, skipping /v1/conversations routes.")
		}

		// --- Mount Realtime Feed Routes ---
		if deps.FeedHandler != nil {
			r.Route("/ws", func(r chi.Router) {
				r.Get("/conversations", deps.FeedHandler.HandleConversationFeed)
				r.Get("/conversations/{conversationID}/messages", deps.FeedHandler.HandleMessageFeed)
			})
		} else {
			log.Println("WARN: FeedHandler dependency is nil, skipping /v1/ws routes.")
		}
	})

	return r
}

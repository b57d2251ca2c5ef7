package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/turing-station/backend/internal/handler/character"
	"github.com/turing-station/backend/internal/handler/game"
	"github.com/turing-station/backend/internal/handler/live"
	"github.com/turing-station/backend/internal/handler/stream"
	middlewarePkg "github.com/turing-station/backend/internal/middleware"
	characterModel "github.com/turing-station/backend/internal/model/character"
	gameService "github.com/turing-station/backend/internal/service/game"
	"github.com/turing-station/backend/internal/service/interrogation"
	"github.com/turing-station/backend/internal/store"
)

// Dependencies are the services the HTTP layer is wired to.
type Dependencies struct {
	Cast           characterModel.Store
	Registry       *gameService.Registry
	Coordinator    *interrogation.Coordinator
	Ledger         store.Ledger
	Pinger         game.Pinger
	Limiter        *middlewarePkg.RateLimiter
	AllowedOrigins []string
	Development    bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	gameHandler := game.New(deps.Registry, deps.Ledger, deps.Pinger, deps.Development)
	characterHandler := character.New(deps.Cast, deps.Registry, deps.Development)
	streamHandler := stream.New(deps.Coordinator, deps.Development)
	liveHandler := live.New(deps.Registry, deps.Cast, deps.Coordinator, deps.Development)

	r.Route("/api", func(api chi.Router) {
		if deps.Limiter != nil {
			api.Use(deps.Limiter.Middleware)
		}

		gameHandler.RegisterRoutes(api)
		characterHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	return r
}

package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/esports-platform/docs"
	"github.com/Dosada05/esports-platform/handlers"
	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Match        *handlers.MatchHandler
	Ranking      *handlers.RankingHandler
	Game         *handlers.GameHandler
}

func SetupRoutes(router chi.Router, h Handlers, auth *middleware.Authenticator, allowedOrigins []string) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.Timeout(30 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Документация API
	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.OpenAPI)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Публичные маршруты
	router.Group(func(r chi.Router) {
		r.Get("/tournaments", h.Tournament.ListHandler)
		r.Get("/tournaments/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Get("/tournaments/{tournamentID}/bracket", h.Tournament.GetBracketHandler)
		r.Get("/tournaments/{tournamentID}/standings", h.Tournament.StandingsHandler)
		r.Get("/tournaments/{tournamentID}/matches", h.Match.ListByTournamentHandler)
		r.Get("/tournaments/{tournamentID}/registrations", h.Registration.ListHandler)

		r.Get("/matches/{matchID}", h.Match.GetByIDHandler)

		r.Get("/games", h.Game.GetAllGamesHandler)
		r.Get("/games/{gameID}", h.Game.GetGameByIDHandler)
		r.Get("/games/{gameID}/leaderboard", h.Ranking.LeaderboardHandler)

		r.Get("/users/{userID}/rankings", h.Ranking.UserRankingsHandler)
		r.Get("/users/{userID}/rating-history", h.Ranking.HistoryHandler)
		r.Post("/rating/delta", h.Ranking.ComputeDeltaHandler)
	})

	// Защищенные маршруты
	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.With(middleware.RequireRoles(models.RoleOrganizer, models.RoleAdmin)).
			Post("/tournaments", h.Tournament.CreateHandler)
		r.Put("/tournaments/{tournamentID}", h.Tournament.UpdateDetailsHandler)
		r.Patch("/tournaments/{tournamentID}/status", h.Tournament.UpdateStatusHandler)
		r.Post("/tournaments/{tournamentID}/banner", h.Tournament.UploadBannerHandler)
		r.Post("/tournaments/{tournamentID}/bracket", h.Tournament.GenerateBracketHandler)
		r.Post("/tournaments/{tournamentID}/playoff", h.Tournament.GeneratePlayoffHandler)

		r.Post("/tournaments/{tournamentID}/registrations", h.Registration.RegisterHandler)
		r.Patch("/registrations/{registrationID}/status", h.Registration.UpdateStatusHandler)
		r.Put("/registrations/{registrationID}/seed", h.Registration.SetSeedHandler)
		r.Delete("/registrations/{registrationID}", h.Registration.CancelHandler)

		r.Post("/matches/{matchID}/start", h.Match.StartHandler)
		r.Post("/matches/{matchID}/result", h.Match.RecordResultHandler)
		r.Post("/matches/{matchID}/dispute", h.Match.DisputeHandler)

		r.With(middleware.RequireRoles(models.RoleAdmin)).
			Post("/games", h.Game.CreateGameHandler)
	})
}

package api

import (
	"net/http"
	"strings"

	"github.com/Loopin-city/loopin-city-sub001/internal/archiver"
	"github.com/Loopin-city/loopin-city-sub001/internal/auth"
	"github.com/Loopin-city/loopin-city-sub001/internal/database"
	"github.com/Loopin-city/loopin-city-sub001/internal/dedup"
	"github.com/Loopin-city/loopin-city-sub001/internal/lifecycle"
	"github.com/Loopin-city/loopin-city-sub001/internal/scheduler"
	"log/slog"
)

// Repositories bundles the storage layer handed to the router.
type Repositories struct {
	Events      *database.PostgresEventRepository
	Archive     *database.PostgresArchiveRepository
	Communities *database.PostgresCommunityRepository
	Venues      *database.PostgresVenueRepository
	Duplicates  *database.PostgresDuplicateRepository
	CleanupLogs *database.CleanupLogRepository
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, repos Repositories, manager *lifecycle.Manager, arch *archiver.Archiver, workflow *dedup.Workflow, cleanupScheduler *scheduler.CleanupScheduler, authConfig auth.Config, logger *slog.Logger) {
	handler := NewHandler(repos.Events, repos.Venues, manager, arch, repos.CleanupLogs, logger)
	archiveHandler := NewArchiveHandler(repos.Archive, logger)
	communityHandler := NewCommunityHandler(repos.Communities, logger)
	venueHandler := NewVenueHandler(repos.Venues, logger)
	duplicateHandler := NewDuplicateHandler(workflow, repos.Duplicates, logger)
	cleanupHandler := NewCleanupHandler(cleanupScheduler, repos.CleanupLogs, logger)
	authHandler := NewAuthHandler(authConfig, logger)

	// Auth middleware
	authMiddleware := auth.AuthMiddleware(authConfig)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Event routes: listing is public, submission is public, moderation
	// requires auth
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			handler.GetEventsHandler(w, r)
		case http.MethodPost:
			handler.CreateEventHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}

		// Status change requires auth
		if r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/status") {
			authMiddleware(http.HandlerFunc(handler.UpdateEventStatusHandler)).ServeHTTP(w, r)
			return
		}

		// Early archival requires auth
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/archive") {
			authMiddleware(http.HandlerFunc(handler.ArchiveEventHandler)).ServeHTTP(w, r)
			return
		}

		// Registration click tracking is public
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/click") {
			handler.TrackEventClickHandler(w, r)
			return
		}

		if r.Method == http.MethodDelete {
			authMiddleware(http.HandlerFunc(handler.DeleteEventHandler)).ServeHTTP(w, r)
			return
		}

		// Otherwise handle as get by ID (public)
		handler.GetEventByIDHandler(w, r)
	})

	// Archived event routes (public reads, admin curation)
	mux.HandleFunc("/api/archive", archiveHandler.ListArchivedEventsHandler)
	mux.HandleFunc("/api/archive/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/archive/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, PUT, OPTIONS")
			return
		}

		if r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/featured") {
			authMiddleware(http.HandlerFunc(archiveHandler.UpdateCurationHandler)).ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/click") {
			archiveHandler.TrackArchivedClickHandler(w, r)
			return
		}

		archiveHandler.GetArchivedEventHandler(w, r)
	})

	// Community routes
	mux.HandleFunc("/api/communities", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, OPTIONS")
			return
		}
		switch r.Method {
		case http.MethodGet:
			communityHandler.ListCommunitiesHandler(w, r)
		case http.MethodPost:
			communityHandler.CreateCommunityHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/communities/leaderboard", communityHandler.CommunityLeaderboardHandler)

	mux.HandleFunc("/api/communities/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/communities/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, PUT, DELETE, OPTIONS")
			return
		}

		switch r.Method {
		case http.MethodGet:
			communityHandler.GetCommunityHandler(w, r)
		case http.MethodPut:
			authMiddleware(http.HandlerFunc(communityHandler.UpdateCommunityHandler)).ServeHTTP(w, r)
		case http.MethodDelete:
			authMiddleware(http.HandlerFunc(communityHandler.DeleteCommunityHandler)).ServeHTTP(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Venue routes (public)
	mux.HandleFunc("/api/venues", venueHandler.ListVenuesHandler)
	mux.HandleFunc("/api/venues/leaderboard", venueHandler.VenueLeaderboardHandler)

	// Duplicate review routes (admin only)
	mux.HandleFunc("/api/admin/duplicates", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				duplicateHandler.ListPendingHandler(w, r)
			case http.MethodPost:
				duplicateHandler.CreateCandidateHandler(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/admin/duplicates/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/duplicates/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodOptions {
			writePreflight(w, "POST, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			switch {
			case strings.HasSuffix(r.URL.Path, "/merge"):
				duplicateHandler.MergeHandler(w, r)
			case strings.HasSuffix(r.URL.Path, "/keep-separate"):
				duplicateHandler.KeepSeparateHandler(w, r)
			case strings.HasSuffix(r.URL.Path, "/investigate"):
				duplicateHandler.InvestigateHandler(w, r)
			default:
				http.NotFound(w, r)
			}
		})).ServeHTTP(w, r)
	})

	// Cleanup routes (admin only)
	mux.HandleFunc("/api/admin/cleanup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "POST, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			cleanupHandler.TriggerCleanupHandler(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/admin/cleanup-logs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(cleanupHandler.ListCleanupLogsHandler)).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/admin/cleanup-logs/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, OPTIONS")
			return
		}
		authMiddleware(http.HandlerFunc(cleanupHandler.LatestCleanupLogHandler)).ServeHTTP(w, r)
	})

	// CORS preflight
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			writePreflight(w, "GET, POST, PUT, DELETE, OPTIONS")
			return
		}
		http.NotFound(w, r)
	})
}

func writePreflight(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}

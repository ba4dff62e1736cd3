package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"avena-triage-core/internal/application"
	"avena-triage-core/internal/config"
	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/collaborator"
	"avena-triage-core/internal/infrastructure/metrics"
	"avena-triage-core/internal/infrastructure/registry"
	"avena-triage-core/internal/infrastructure/repository"
	"avena-triage-core/internal/infrastructure/sessionstore"
	shopifyinfra "avena-triage-core/internal/infrastructure/shopify"
	"avena-triage-core/internal/infrastructure/tokenstore"
	"avena-triage-core/internal/infrastructure/tracking"
	"avena-triage-core/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.ShopifyClientID == "" || cfg.ShopifyClientSecret == "" {
		logger.Fatal().Msg("SHOPIFY_CLIENT_ID and SHOPIFY_CLIENT_SECRET are required")
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDatabase)

	// OAuth sessions live in Redis so their TTL handles expiry; without
	// Redis an in-process store keeps single-node runs working.
	var sessions ports.SessionStore
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, using in-memory OAuth sessions")
		sessions = sessionstore.NewMemoryStore()
	} else {
		sessions = sessionstore.NewRedisStore(redisClient, logger)
	}

	tokens, err := tokenstore.NewFileStore(cfg.TokensDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open token store")
	}

	storeRegistry := registry.NewMongoRegistry(db)
	caseRepo := repository.NewMongoCaseRepository(db)
	m := metrics.New(prometheus.DefaultRegisterer)

	storefront := shopifyinfra.NewClient(cfg.ShopifyClientID, cfg.ShopifyClientSecret, logger)

	oauthService := application.NewOAuthService(
		storeRegistry, sessions, tokens, storefront,
		cfg.RequiredScopes(),
		cfg.AppURL+"/auth/callback",
		m, logger,
	)

	resolverService := application.NewResolverService(
		storeRegistry, tokens, storefront,
		application.ResolverConfig{
			StoreLookupTimeout: cfg.StoreLookupTimeout,
			ResolutionTimeout:  cfg.ResolutionTimeout,
			MaxConcurrent:      cfg.MaxConcurrentLookups,
			RateLimitBackoff:   cfg.RateLimitRetryBackoff,
		},
		m, logger,
	)

	var drafter ports.ReplyDrafter
	if cfg.ReplyDrafterURL != "" {
		drafter = collaborator.NewHTTPReplyDrafter(cfg.ReplyDrafterURL, logger)
	}
	var sender ports.MailSender
	if cfg.MailSenderURL != "" {
		sender = collaborator.NewHTTPMailSender(cfg.MailSenderURL, logger)
	}
	var trackingProvider ports.TrackingProvider
	if keys := cfg.ParcelpanelKeyMap(); len(keys) > 0 {
		trackingProvider = tracking.NewParcelpanelClient(keys, logger)
	}

	triageService := application.NewTriageService(
		caseRepo, resolverService, drafter, sender, trackingProvider,
		application.AutoSendFlags{
			Tracking:      cfg.AutoSendTracking,
			ReturnConfirm: cfg.AutoSendReturnConfirm,
		},
		m, logger,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// OAuth routes
	r.Get("/auth/shopify", oauthBeginHandler(oauthService, logger))
	r.Get("/auth/callback", oauthCallbackHandler(oauthService, logger))

	// Store management
	r.Route("/api/stores", func(r chi.Router) {
		r.Get("/", listStoresHandler(storeRegistry, logger))
		r.Delete("/{storeID}", deleteStoreHandler(storeRegistry, tokens, logger))
		r.Post("/{storeID}/test", testConnectionHandler(oauthService, logger))
	})

	// Triage pipeline and review dashboard data
	r.Post("/api/triage", triageHandler(triageService, logger))
	r.Get("/api/cases", listCasesHandler(triageService, logger))
	r.Get("/api/stats", statsHandler(triageService, logger))

	logger.Info().Str("port", cfg.Port).Msg("Starting triage API server")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// oauthBeginHandler starts the authorization flow and redirects the merchant
// to the platform's consent screen.
func oauthBeginHandler(oauthService *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}
		organizationID := r.URL.Query().Get("organization_id")

		authURL, err := oauthService.Begin(r.Context(), shop, organizationID)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyPending) {
				http.Error(w, "authorization already in progress for this store", http.StatusConflict)
				return
			}
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth flow")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the authorization flow. Every missing
// parameter is a hard failure; nothing is guessed.
func oauthCallbackHandler(oauthService *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if shop == "" || code == "" || state == "" {
			logger.Warn().
				Str("shop", shop).
				Msg("OAuth callback missing required parameters")
			http.Error(w, domain.ErrBadCallback.Error(), http.StatusBadRequest)
			return
		}

		if err := oauthService.Complete(r.Context(), shop, code, state); err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionExpired):
				http.Error(w, err.Error(), http.StatusGone)
			case errors.Is(err, domain.ErrNonceMismatch):
				http.Error(w, err.Error(), http.StatusUnauthorized)
			case errors.Is(err, domain.ErrInsufficientScope):
				http.Error(w, err.Error(), http.StatusForbidden)
			case errors.Is(err, domain.ErrExchangeFailed):
				http.Error(w, err.Error(), http.StatusBadGateway)
			default:
				logger.Error().Err(err).Str("shop", shop).Msg("OAuth callback failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "connected",
			"store":  domain.NormalizeStoreID(shop),
		})
	}
}

func listStoresHandler(storeRegistry ports.StoreRegistry, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stores, err := storeRegistry.List(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list stores")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"stores": stores})
	}
}

func deleteStoreHandler(storeRegistry ports.StoreRegistry, tokens ports.TokenStore, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := domain.NormalizeStoreID(chi.URLParam(r, "storeID"))

		// A store stuck in pending_auth or disconnected has no credential
		// record; that must not block removing it from the registry.
		if err := tokens.Invalidate(storeID); err != nil && !errors.Is(err, domain.ErrNotConnected) {
			logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to invalidate credential")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := storeRegistry.Delete(r.Context(), storeID); err != nil {
			if errors.Is(err, domain.ErrStoreNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Str("store_id", storeID).Msg("Failed to delete store")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "store": storeID})
	}
}

func testConnectionHandler(oauthService *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := domain.NormalizeStoreID(chi.URLParam(r, "storeID"))

		valid, err := oauthService.TestConnection(r.Context(), storeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotConnected) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Error().Err(err).Str("store_id", storeID).Msg("Connection test failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"store": storeID, "valid": valid})
	}
}

// triageHandler accepts one classified inbound email from the mail pipeline.
func triageHandler(triageService *application.TriageService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in application.TriageInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		c, err := triageService.Triage(r.Context(), in)
		switch {
		case errors.Is(err, domain.ErrDuplicateCase):
			writeJSON(w, http.StatusOK, map[string]interface{}{"case": c, "duplicate": true})
		case errors.Is(err, domain.ErrSendFailed):
			// The case is parked for review; the caller learns the send
			// itself failed.
			writeJSON(w, http.StatusAccepted, map[string]interface{}{"case": c, "send_failed": true})
		case err != nil:
			logger.Error().Err(err).Str("message_id", in.MessageID).Msg("Triage failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{"case": c})
		}
	}
}

func listCasesHandler(triageService *application.TriageService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		disposition := domain.Disposition(r.URL.Query().Get("disposition"))
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		cases, err := triageService.ListCases(r.Context(), disposition, limit)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list cases")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
	}
}

func statsHandler(triageService *application.TriageService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := triageService.Stats(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to aggregate case stats")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"by_disposition": counts})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"github.com/username/poolfolio/backend/src/config"
	"github.com/username/poolfolio/backend/src/database"
	"github.com/username/poolfolio/backend/src/handlers"
	"github.com/username/poolfolio/backend/src/logger"
	"github.com/username/poolfolio/backend/src/model"
	"github.com/username/poolfolio/backend/src/models"
	"github.com/username/poolfolio/backend/src/security"
	"github.com/username/poolfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Poolfolio backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	priceService := services.NewPriceService()

	loadSnapshot := func() (*models.Snapshot, error) {
		return model.LoadSnapshot(database.DB)
	}
	portfolioService := services.NewPortfolioService(loadSnapshot, reportCache)

	handlers.InitializeGoogleOAuthConfig()
	userHandler := handlers.NewUserHandler(authService, emailService)
	memberHandler := handlers.NewMemberHandler(portfolioService)
	contributionHandler := handlers.NewContributionHandler(portfolioService)
	securityHandler := handlers.NewSecurityHandler(priceService, portfolioService)
	txHandler := handlers.NewTransactionHandler(portfolioService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

	if config.Cfg.PriceRefreshSchedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(config.Cfg.PriceRefreshSchedule, func() {
			logger.L.Info("Scheduled price refresh starting")
			updated, err := services.RefreshSecurityPrices(database.DB, priceService)
			if err != nil {
				logger.L.Error("Scheduled price refresh failed", "error", err)
				return
			}
			if updated > 0 {
				portfolioService.InvalidateCache()
			}
		})
		if err != nil {
			logger.L.Error("Invalid price refresh schedule", "schedule", config.Cfg.PriceRefreshSchedule, "error", err)
		} else {
			scheduler.Start()
			logger.L.Info("Price refresh scheduled", "schedule", config.Cfg.PriceRefreshSchedule)
		}
	}

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	csrfProtection := handlers.CSRFMiddleware()
	withAuth := func(h http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(h))
	}
	withAdmin := func(h http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(userHandler.RequireAdmin(h)))
	}

	// Public GET routes
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)
	apiRouter.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	apiRouter.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	// Auth actions, CSRF protected
	apiRouter.Handle("POST /api/auth/register", csrfProtection(http.HandlerFunc(userHandler.RegisterUserHandler)))
	apiRouter.Handle("POST /api/auth/login", csrfProtection(http.HandlerFunc(userHandler.LoginUserHandler)))
	apiRouter.Handle("POST /api/auth/refresh", csrfProtection(http.HandlerFunc(userHandler.RefreshTokenHandler)))
	apiRouter.Handle("POST /api/auth/logout", withAuth(userHandler.LogoutUserHandler))
	apiRouter.Handle("POST /api/auth/request-password-reset", csrfProtection(http.HandlerFunc(userHandler.RequestPasswordResetHandler)))
	apiRouter.Handle("POST /api/auth/reset-password", csrfProtection(http.HandlerFunc(userHandler.ResetPasswordHandler)))
	apiRouter.Handle("GET /api/auth/me", withAuth(userHandler.MeHandler))

	// Members
	apiRouter.Handle("GET /api/members", withAuth(memberHandler.HandleListMembers))
	apiRouter.Handle("POST /api/members", withAdmin(memberHandler.HandleCreateMember))
	apiRouter.Handle("PUT /api/members/{id}", withAdmin(memberHandler.HandleUpdateMember))
	apiRouter.Handle("DELETE /api/members/{id}", withAdmin(memberHandler.HandleDeleteMember))

	// Contributions
	apiRouter.Handle("GET /api/contributions", withAuth(contributionHandler.HandleListContributions))
	apiRouter.Handle("POST /api/contributions", withAdmin(contributionHandler.HandleCreateContribution))
	apiRouter.Handle("DELETE /api/contributions/{id}", withAdmin(contributionHandler.HandleDeleteContribution))

	// Securities
	apiRouter.Handle("GET /api/securities", withAuth(securityHandler.HandleListSecurities))
	apiRouter.Handle("POST /api/securities", withAdmin(securityHandler.HandleCreateSecurity))
	apiRouter.Handle("PUT /api/securities/{id}", withAdmin(securityHandler.HandleUpdateSecurity))
	apiRouter.Handle("DELETE /api/securities/{id}", withAdmin(securityHandler.HandleDeleteSecurity))
	apiRouter.Handle("POST /api/securities/refresh-prices", withAdmin(securityHandler.HandleRefreshPrices))

	// Transactions
	apiRouter.Handle("GET /api/transactions", withAuth(txHandler.HandleListTransactions))
	apiRouter.Handle("POST /api/transactions", withAdmin(txHandler.HandleCreateTransaction))
	apiRouter.Handle("DELETE /api/transactions/{id}", withAdmin(txHandler.HandleDeleteTransaction))
	apiRouter.Handle("POST /api/transactions/propose-sell", withAuth(txHandler.HandleProposeSellAllocations))

	// Portfolio reports
	apiRouter.Handle("GET /api/portfolio/summary", withAuth(portfolioHandler.HandleGetPortfolioSummary))
	apiRouter.Handle("GET /api/portfolio/securities/{id}", withAuth(portfolioHandler.HandleGetSecuritySummary))
	apiRouter.Handle("GET /api/portfolio/export", withAuth(portfolioHandler.HandleExportPortfolioCSV))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "POOLFOLIO Backend is running"})
		} else if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}

package cmd

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"ticket-marketplace/config"
	"ticket-marketplace/handlers"
	_ "ticket-marketplace/migrations"
	"ticket-marketplace/security"
	"ticket-marketplace/services"
	"ticket-marketplace/utils"

	"github.com/pocketbase/pocketbase/apis"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pn = pubnub.NewPubNub(pnConfig)
	}

	// Initialize services
	store := services.NewStore(app)
	cache := services.NewCollectionCache(redisClient, store, pn, cfg.CacheTTL)
	ticketService := services.NewTicketService(store, cache)
	selection := services.NewSelectionStore()
	deleteWorkflow := services.NewDeleteWorkflow(ticketService)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(app, store, cache, ticketService, deleteWorkflow, cfg.SessionValidity)
	selectionHandler := handlers.NewSelectionHandler(store, selection)

	// Rate limiting for mutation endpoints
	limiter := security.NewRateLimiter(redisClient, cfg.MutationRateLimit, cfg.MutationRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Setup graceful shutdown
	go handleShutdown()

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		mutationLimit := limiter.MutationRateLimit()

		// Marketplace browse
		e.Router.GET("/api/v1/tickets", ticketHandler.Browse)

		// Per-user collection view
		e.Router.GET("/api/v1/my/tickets", ticketHandler.GetMyCollection)

		// Ticket mutations
		e.Router.POST("/api/v1/tickets", ticketHandler.Create).BindFunc(mutationLimit)
		e.Router.PATCH("/api/v1/tickets/{id}", ticketHandler.Update).BindFunc(mutationLimit)

		// Delete confirmation workflow
		e.Router.POST("/api/v1/tickets/{id}/delete", ticketHandler.RequestDelete)
		e.Router.POST("/api/v1/tickets/delete/confirm", ticketHandler.ConfirmDelete).BindFunc(mutationLimit)
		e.Router.POST("/api/v1/tickets/delete/cancel", ticketHandler.CancelDelete)
		e.Router.GET("/api/v1/tickets/delete/state", ticketHandler.GetDeleteState)

		// Shared preview selection
		e.Router.GET("/api/v1/selection", selectionHandler.Get)
		e.Router.PUT("/api/v1/selection", selectionHandler.Set)
		e.Router.DELETE("/api/v1/selection", selectionHandler.Clear)

		// Test endpoint for purchase simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-purchase", ticketHandler.SimulatePurchase).BindFunc(mutationLimit)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		setupAuthHooks(app, cache)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// setupAuthHooks wires authentication-state transitions into the cache:
// a newly signed-in identity must not inherit a previous session's cached
// collection.
func setupAuthHooks(app *pocketbase.PocketBase, cache *services.CollectionCache) {
	app.OnRecordAuthRequest().BindFunc(func(e *core.RecordAuthRequestEvent) error {
		ctx := e.Request.Context()
		userID := e.Record.Id

		if err := cache.Invalidate(ctx, userID); err != nil {
			// The sign-in itself must not fail over a cache refresh.
			slog.Error("collection refresh on sign-in failed", "userID", userID, "error", err)
			return e.Next()
		}

		slog.Info("collection refreshed on sign-in", "userID", userID)
		return e.Next()
	})

	app.OnRecordAuthRefreshRequest().BindFunc(func(e *core.RecordAuthRefreshRequestEvent) error {
		ctx := e.Request.Context()
		userID := e.Record.Id

		if err := cache.Invalidate(ctx, userID); err != nil {
			slog.Error("collection refresh on token refresh failed", "userID", userID, "error", err)
		}
		return e.Next()
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

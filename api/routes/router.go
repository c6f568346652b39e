// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"raceday/internal/admission"
	"raceday/internal/capacity"
	"raceday/internal/notifications"
	"raceday/internal/participants"
	"raceday/internal/shared/config"
	"raceday/internal/shared/database"
	"raceday/internal/transfers"
	"raceday/internal/waitlist"
	"raceday/pkg/cache"
	"raceday/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Router holds all route dependencies
type Router struct {
	config     *config.Config
	db         *database.DB
	dispatcher notifications.Dispatcher
	logger     *logger.Logger

	// admissionService is kept after setup so main can wire the background
	// sweeper and the blocked-delivery purge hook
	admissionService admission.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, dispatcher notifications.Dispatcher, log *logger.Logger) *Router {
	return &Router{
		config:     cfg,
		db:         db,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// AdmissionService returns the admission service built during SetupRoutes.
// Returns nil before SetupRoutes has run.
func (r *Router) AdmissionService() admission.Service {
	return r.admissionService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	gormDB := r.db.GetSQLite()

	// Cache layer is optional; services fall back to the database when nil
	var cacheService cache.Service
	if r.db.GetRedisClient() != nil {
		cacheService = cache.NewService(r.db.GetRedisClient())
	}

	// Repositories
	capacityRepo := capacity.NewRepository(gormDB)
	participantRepo := participants.NewRepository(gormDB)
	waitlistRepo := waitlist.NewRepository(gormDB)
	transferRepo := transfers.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	// Services
	capacityService := capacity.NewService(capacityRepo, participantRepo,
		func(tx *gorm.DB) capacity.ParticipantCounter {
			return participantRepo.WithTx(tx)
		})
	participantService := participants.NewService(participantRepo, cacheService, r.logger)
	waitlistService := waitlist.NewService(waitlistRepo, cacheService, r.logger)
	transferService := transfers.NewService(gormDB, transferRepo, participantRepo, waitlistService, r.dispatcher, r.logger)

	r.admissionService = admission.NewService(
		gormDB,
		capacityService,
		participantRepo,
		waitlistService,
		transferService,
		r.dispatcher,
		r.config.Waitlist.ConfirmWindow,
		r.config.Waitlist.DemoteReinsert,
		r.logger,
	)

	// Transfers serialize slot swaps through the admission role locks
	transferService.SetRoleLocker(r.admissionService)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		admission.SetupAdmissionRoutes(api, admission.NewController(r.admissionService))
		waitlist.SetupWaitlistRoutes(api, waitlist.NewController(waitlistService))
		transfers.SetupTransferRoutes(api, transfers.NewController(transferService))
		participants.SetupParticipantRoutes(api, participants.NewController(participantService))
		notifications.SetupNotificationRoutes(api, notifications.NewController(notificationRepo))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "raceday",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "raceday",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

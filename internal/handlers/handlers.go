package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"geomodel/internal/artifact"
	"geomodel/internal/config"
	"geomodel/internal/ids"
	"geomodel/internal/middleware"
	"geomodel/internal/repository"
	"geomodel/internal/service"
	"geomodel/internal/tasks"
)

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	db        *pgxpool.Pool
	cache     *redis.Client
	ingest    *service.IngestService
	resolver  *service.Resolver
	catalog   *service.CatalogService
	lifecycle *service.LifecycleService
	archive   *service.ArchiveService
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *artifact.Store, pool *tasks.Pool, cfg *config.AppConfig) HandlerSet {
	modelRepo := repository.NewModelRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	alloc := ids.NewAllocator(modelRepo)

	ingest := service.NewIngestService(modelRepo, userRepo, store, alloc, pool, log)
	resolver := service.NewResolver(modelRepo, favoriteRepo, store, log)
	catalog := service.NewCatalogService(modelRepo, favoriteRepo, log)
	lifecycle := service.NewLifecycleService(modelRepo, favoriteRepo, userRepo, sessionRepo, store, log)
	archive := service.NewArchiveService(modelRepo, resolver, log)

	return HandlerSet{
		log:       log,
		cfg:       cfg,
		db:        db,
		cache:     cache,
		ingest:    ingest,
		resolver:  resolver,
		catalog:   catalog,
		lifecycle: lifecycle,
		archive:   archive,
		users:     userRepo,
		sessions:  sessionRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	open := v1.Group("/models")
	open.Use(middleware.Identity(h.cfg, h.users, h.sessions))
	{
		open.POST("/save", h.SaveModel)
		open.POST("/export", h.SaveExport)
		open.GET("/:id/data", h.ModelData)
		open.GET("/:id/glb", h.ModelGLB)
		open.GET("/:id/thumbnail", h.ModelThumbnail)
		open.GET("/:id/stats", h.ModelStats)
		open.GET("/:id/archive", h.ModelArchive)
		open.POST("/:id/view", h.RecordView)
	}

	owned := v1.Group("/models")
	owned.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	{
		owned.POST("/:id/update", h.UpdateModel)
		owned.POST("/:id/visibility", h.ToggleVisibility)
		owned.POST("/:id/favorite", h.ToggleFavorite)
		owned.POST("/:id/delete", h.DeleteModel)
		owned.GET("/:id/camera", h.CameraPreset)
	}

	account := v1.Group("/account")
	account.Use(middleware.Auth(h.cfg, h.users, h.sessions))
	{
		account.GET("/models", h.ListOwnModels)
		account.GET("/stats", h.AccountStats)
		account.GET("/favorites", h.ListFavorites)
		account.POST("/delete", h.DeleteAccount)
	}
}

// fail maps the service error taxonomy onto HTTP statuses.
func (h HandlerSet) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/settlement_center/backend/internal/config"
	"github.com/settlement_center/backend/internal/db"
	"github.com/settlement_center/backend/internal/http/handlers"
	"github.com/settlement_center/backend/internal/http/middleware"

	_ "github.com/settlement_center/backend/docs"
)

func Router(cfg config.Config, store *db.Store, engine handlers.Computer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:       store,
		Engine:      engine,
		Validator:   validator.New(),
		Logger:      logger,
		AdminKey:    cfg.AdminKey,
		ArtifactDir: cfg.ArtifactDir,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/tenants", h.TenantsList)
		api.GET("/settlement/artifacts/:name", h.DownloadArtifact)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/settlement", h.ComputeSettlement)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

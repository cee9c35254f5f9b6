package app

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"pricing/internal/auth"
	"pricing/internal/handler"
	"pricing/internal/tracing"
)

// Engine builds the HTTP router with middleware and every handler.
func (a *App) Engine() *gin.Engine {
	if strings.EqualFold(a.Config.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(a.Config.Server.CORSOrigins))
	if a.Config.Tracing.Enabled {
		engine.Use(tracing.Middleware(a.Config.Tracing.ServiceName)...)
	}

	var verifier *auth.JWT
	if secret := strings.TrimSpace(a.Config.Auth.JWTSecret); secret != "" {
		verifier = &auth.JWT{Secret: []byte(secret), Issuer: a.Config.Auth.Issuer}
	}
	engine.Use(auth.RequireBearer(verifier))
	engine.Use(auth.WriteAudit(a.Logger.Named("audit")))

	healthHandler := &handler.HealthHandler{DB: a.gormDB()}
	healthHandler.Register(engine)

	pricingHandler := &handler.PricingHandler{
		Optimizer:       a.Optimizer,
		Feedback:        a.Feedback,
		DefaultVendorID: a.Config.Pricing.DefaultVendorID,
		Logger:          a.Logger.Named("http"),
	}
	pricingHandler.Register(engine)

	modelsHandler := &handler.ModelsHandler{
		Repo:          a.Store,
		PredictorKind: a.PredictorKind,
		Serving:       a.Serving,
		Files:         a.ModelFiles,
		Logger:        a.Logger.Named("http"),
	}
	modelsHandler.Register(engine)

	monitoringHandler := &handler.MonitoringHandler{Repo: a.Store}
	monitoringHandler.Register(engine)

	switchesHandler := &handler.SwitchesHandler{Switches: a.Switches}
	switchesHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return engine
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", tracing.HeaderRequestID},
		ExposeHeaders: []string{tracing.HeaderRequestID, tracing.HeaderTraceID},
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func (a *App) gormDB() *gorm.DB {
	if a.DB == nil {
		return nil
	}
	return a.DB.Gorm
}

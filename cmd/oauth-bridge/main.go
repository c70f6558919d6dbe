package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/oauth-bridge/api/swagger"
	"github.com/noah-isme/oauth-bridge/internal/handler"
	"github.com/noah-isme/oauth-bridge/internal/middleware"
	"github.com/noah-isme/oauth-bridge/internal/models"
	"github.com/noah-isme/oauth-bridge/internal/repository"
	"github.com/noah-isme/oauth-bridge/internal/service"
	"github.com/noah-isme/oauth-bridge/internal/token"
	"github.com/noah-isme/oauth-bridge/internal/upstream"
	"github.com/noah-isme/oauth-bridge/pkg/cache"
	"github.com/noah-isme/oauth-bridge/pkg/config"
	"github.com/noah-isme/oauth-bridge/pkg/database"
	"github.com/noah-isme/oauth-bridge/pkg/jobs"
	"github.com/noah-isme/oauth-bridge/pkg/logger"
	corsmiddleware "github.com/noah-isme/oauth-bridge/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/oauth-bridge/pkg/middleware/requestid"
)

// @title OAuth Bridge
// @version 0.1.0
// @description Bridges the session-based identity provider to OAuth2 authorization-code-grant clients
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	codeRepo := repository.NewCodeRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	revocationRepo := repository.NewRevocationRepository(redisClient, logr)

	codec := token.NewCodec(token.CodecConfig{
		Secret:   cfg.OAuth.SigningSecret,
		KeyID:    cfg.OAuth.SigningKeyID,
		Issuer:   cfg.Issuer,
		Audience: cfg.OAuth.ClientID,
		TTL:      cfg.OAuth.AccessTokenTTL,
	})

	registry := service.NewClientRegistry(models.Client{
		ID:              cfg.OAuth.ClientID,
		Secret:          cfg.OAuth.ClientSecret,
		RedirectDomains: cfg.OAuth.RedirectDomains,
	})

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	resolver := upstream.NewHTTPSessionResolver(cfg.Upstream.SessionResolverURL, cfg.Upstream.Timeout)
	notifier := upstream.NewHTTPIdentityNotifier(cfg.Upstream.IdentitySyncURL, cfg.Upstream.Timeout)

	syncQueue := jobs.NewQueue("identity-sync", service.IdentitySyncHandler(notifier, logr, metricsSvc), jobs.QueueConfig{
		Workers:    cfg.Sync.Workers,
		MaxRetries: cfg.Sync.Retries,
		Logger:     logr,
	})
	syncQueue.Start(context.Background())
	defer syncQueue.Stop()

	sweeper := service.NewSweeperService(cfg.Sweep.Interval, logr, codeRepo, tokenRepo)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	authorizeSvc := service.NewAuthorizeService(registry, codeRepo, resolver, syncQueue, validate, logr, metricsSvc, service.AuthorizeConfig{
		LoginURL:     cfg.Login.URL,
		DefaultScope: cfg.OAuth.DefaultScope,
		CodeTTL:      cfg.OAuth.AuthCodeTTL,
	})
	tokenSvc := service.NewTokenService(registry, codeRepo, tokenRepo, codec, validate, logr, metricsSvc, service.TokenConfig{
		AccessTokenTTL:  cfg.OAuth.AccessTokenTTL,
		RefreshTokenTTL: cfg.OAuth.RefreshTokenTTL,
	})
	sessionSvc := service.NewSessionService(codec, revocationRepo, tokenRepo, resolver, logr, metricsSvc)

	authorizeHandler := handler.NewAuthorizeHandler(authorizeSvc, cfg.Issuer)
	tokenHandler := handler.NewTokenHandler(tokenSvc)
	userInfoHandler := handler.NewUserInfoHandler(sessionSvc)
	discoveryHandler := handler.NewDiscoveryHandler(cfg.Issuer, cfg.OAuth.SigningKeyID, cfg.OAuth.DefaultScope)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/authorize", authorizeHandler.Authorize)
	r.POST("/token", tokenHandler.Token)
	r.GET("/userinfo", userInfoHandler.UserInfo)
	r.POST("/revoke", userInfoHandler.Revoke)
	r.POST("/signout", userInfoHandler.Revoke)
	r.GET("/.well-known/openid-configuration", discoveryHandler.Configuration)
	r.GET("/jwks", discoveryHandler.JWKS)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "issuer", cfg.Issuer)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

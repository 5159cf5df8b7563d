package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/akbargherbal/gemini-fusion/internal/ai"
	"github.com/akbargherbal/gemini-fusion/internal/config"
	"github.com/akbargherbal/gemini-fusion/internal/handler"
	"github.com/akbargherbal/gemini-fusion/internal/model"
	"github.com/akbargherbal/gemini-fusion/internal/pkg/cache"
	"github.com/akbargherbal/gemini-fusion/internal/pkg/mongodb"
	"github.com/akbargherbal/gemini-fusion/internal/repository"
	"github.com/akbargherbal/gemini-fusion/internal/server/middleware"
	"github.com/akbargherbal/gemini-fusion/internal/service"
)

// Server is the HTTP server.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New wires the server: MongoDB conversation store (required), redis
// session store (optional, falls back to in-memory), the upstream
// adapter, the chat orchestrator, and the routes.
func New(cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	if err := mongodb.EnsureAllIndexes(context.Background(), mongoClient.Database(),
		model.Conversation{}, model.Message{}); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// Session store: redis when configured, in-memory otherwise.
	var redisCache *cache.RedisCache
	var sessions service.SessionStore
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, using in-memory sessions")
		} else {
			redisCache = rc
			sessions = service.NewRedisSessionStore(rc, cfg.Chat.SessionTTL)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}
	if sessions == nil {
		sessions = service.NewMemorySessionStore(cfg.Chat.SessionTTL)
	}

	convRepo := repository.NewConversationRepo(mongoClient.Database())
	aiClient := ai.NewClient(&cfg.AI)
	chatSvc := service.NewChatService(aiClient, convRepo, sessions)

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	srv.setupRoutes(chatSvc)

	return srv, nil
}

func (s *Server) setupRoutes(chatSvc *service.ChatService) {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	chatHandler := handler.NewChatHandler(chatSvc)
	convHandler := handler.NewConversationHandler(chatSvc)

	api := s.engine.Group("/api")
	{
		api.POST("/chat/sync", chatHandler.Sync)
		api.POST("/chat/initiate", chatHandler.Initiate)
		api.POST("/chat/stream", chatHandler.Stream)
		api.GET("/chat/stream/:session_id", chatHandler.StreamSession)

		api.GET("/conversations", convHandler.List)
		api.GET("/conversations/:id", convHandler.GetMessages)
	}
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine returns the gin engine, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

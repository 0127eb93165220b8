// Package main runs the relay HTTP server: the /ws socket endpoint, the
// session API and the optional archive, history and recording side paths.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/liverelay/config"
	"github.com/aura-webinar/liverelay/internal/archive"
	"github.com/aura-webinar/liverelay/internal/auth"
	"github.com/aura-webinar/liverelay/internal/broadcasts"
	"github.com/aura-webinar/liverelay/internal/chatlog"
	"github.com/aura-webinar/liverelay/internal/middleware"
	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/moderation"
	"github.com/aura-webinar/liverelay/internal/presence"
	"github.com/aura-webinar/liverelay/internal/realtime"
	"github.com/aura-webinar/liverelay/internal/recorder"
	"github.com/aura-webinar/liverelay/internal/recordings"
	"github.com/aura-webinar/liverelay/internal/relay"
	"github.com/aura-webinar/liverelay/internal/session"
	"github.com/aura-webinar/liverelay/internal/sessionlog"
	"github.com/aura-webinar/liverelay/internal/worker"
	"github.com/aura-webinar/liverelay/pkg/database"
	"github.com/aura-webinar/liverelay/pkg/queue"
	"github.com/aura-webinar/liverelay/pkg/redis"
	"github.com/aura-webinar/liverelay/pkg/response"
	"github.com/aura-webinar/liverelay/pkg/storage"
)

const (
	archiveBuffer = 1024
	chatLogBuffer = 256
)

func main() {
	logger, level := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		logger.Warn("invalid log level", zap.String("level", cfg.Log.Level))
	}
	logger = logger.With(zap.String("session", cfg.Relay.SessionName), zap.String("instance", cfg.Relay.InstanceID))

	ctx := context.Background()
	// Side paths (taps, subscriber, worker) stop after the sockets are gone.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()
	var background []chan struct{}
	goBackground := func(run func(context.Context)) {
		done := make(chan struct{})
		background = append(background, done)
		go func() {
			defer close(done)
			run(bgCtx)
		}()
	}

	registry := session.NewRegistry(logger)
	rl := relay.New(relay.Config{
		SessionName:         cfg.Relay.SessionName,
		MaxChatLength:       cfg.Chat.MaxLength,
		MaxConsecutiveDrops: cfg.Relay.MaxConsecutiveDrops,
		HistorySize:         cfg.Chat.HistorySize,
	}, registry, logger)

	// Moderation
	if len(cfg.Chat.BannedWords) > 0 {
		mod, err := moderation.NewModerator(cfg.Chat.BannedWords, []rune(cfg.Chat.Replacement)[0], logger)
		if err != nil {
			logger.Fatal("moderation", zap.Error(err))
		}
		rl.SetModerator(mod)
	}

	// Redis: cross-instance chat, presence, upload queue
	var (
		rdb      *redis.Client
		tracker  *presence.Tracker
		jobQueue *queue.Queue
	)
	if cfg.RedisEnabled() {
		rdb, err = redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()

		bridge := realtime.NewRedisChatBridge(rdb.Client, cfg.Relay.SessionName, cfg.Relay.InstanceID, logger)
		unsubscribe, err := bridge.SubscribeChat(bgCtx, func(msg models.ChatMessage) { rl.DeliverChat(msg) })
		if err != nil {
			logger.Fatal("chat subscribe", zap.Error(err))
		}
		defer unsubscribe()
		rl.SetChatBus(bridge)

		tracker = presence.NewTracker(presence.NewRedisSetStore(rdb.Client), cfg.Relay.SessionName, cfg.Relay.InstanceID, cfg.Redis.PresenceTTL, logger)
		rl.AddObserver(tracker)
		goBackground(tracker.Run)

		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	// Chat history
	if cfg.Chat.HistoryDir != "" && cfg.Chat.HistorySize >= 0 {
		db, err := chatlog.Open(cfg.Chat.HistoryDir)
		if err != nil {
			logger.Fatal("chat history", zap.Error(err))
		}
		defer db.Close()
		store := chatlog.NewStore(db, cfg.Relay.SessionName, cfg.Chat.HistoryTTL, logger)
		replay := cfg.Chat.HistorySize
		if replay == 0 {
			replay = relay.DefaultHistorySize
		}
		recent, err := store.Recent(replay)
		if err != nil {
			logger.Warn("load chat history", zap.Error(err))
		}
		rl.SeedHistory(recent)
		tap := chatlog.NewTap(store, chatLogBuffer, logger)
		rl.AddObserver(tap)
		goBackground(tap.Run)
	}

	// Postgres: archive and recordings
	var (
		broadcastHandler  *broadcasts.Handler
		sessionLogHandler *sessionlog.Handler
		recordingRepo     *recordings.Repository
		dbHealthy         func(context.Context) bool
	)
	if cfg.DatabaseEnabled() {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.URL, database.PoolConfig{
			MaxConns:        cfg.Database.MaxConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		}, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		dbHealthy = func(ctx context.Context) bool { return pool.Ping(ctx) == nil }

		broadcastRepo := broadcasts.NewRepository(pool)
		sessionLogRepo := sessionlog.NewRepository(pool)
		writer := archive.NewWriter(broadcastRepo, sessionLogRepo, cfg.Relay.SessionName, archiveBuffer, logger)
		rl.AddObserver(writer)
		goBackground(writer.Run)

		broadcastHandler = broadcasts.NewHandler(broadcastRepo, cfg.Relay.SessionName, logger)
		sessionLogHandler = sessionlog.NewHandler(sessionLogRepo, cfg.Relay.SessionName, logger)
		recordingRepo = recordings.NewRepository(pool)
	}

	// S3
	var s3Client *storage.S3
	if cfg.S3Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	// Recording
	if cfg.Recording.Enabled {
		var uploads recordings.UploadQueue
		if jobQueue != nil {
			uploads = jobQueue
		}
		dir := cfg.Recording.OutputDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "liverelay-recordings")
		}
		rec, err := recorder.New(dir, cfg.Recording.Buffer, recordings.NewService(recordingRepo, uploads, logger), logger)
		if err != nil {
			logger.Fatal("recorder", zap.Error(err))
		}
		rl.AddObserver(rec)
		goBackground(rec.Run)
		logger.Info("recording enabled", zap.String("dir", dir))
	}
	if cfg.Recording.InProcessWorker && recordingRepo != nil && s3Client != nil && jobQueue != nil {
		processor := worker.NewRecordingProcessor(recordingRepo, s3Client, jobQueue, logger)
		goBackground(processor.Run)
		logger.Info("recording worker started")
	}

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler := auth.NewHandler(jwtService, logger)
	var authenticator realtime.Authenticator
	if cfg.Relay.RequireToken {
		authenticator = socketAuthenticator(jwtService)
	}

	// Sockets close when wsCtx is cancelled.
	wsCtx, wsCancel := context.WithCancel(ctx)
	defer wsCancel()
	socketOrigins := cfg.Server.CORSAllowedOrigins
	if lo.Contains(socketOrigins, "*") {
		socketOrigins = nil
	}
	wsServer := realtime.NewServer(wsCtx, rl, realtime.Config{
		PingInterval:   cfg.Relay.PingInterval,
		PongWait:       cfg.Relay.PongWait,
		WriteWait:      cfg.Relay.WriteWait,
		OutboundBuffer: cfg.Relay.OutboundBuffer,
		ReadLimit:      cfg.Relay.ReadLimitBytes,
		AllowedOrigins: socketOrigins,
	}, authenticator, logger)

	var presenceCounter relay.PresenceCounter
	if tracker != nil {
		presenceCounter = tracker
	}
	sessionHandler := relay.NewHandler(rl, presenceCounter, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		deps := gin.H{}
		if rdb != nil {
			deps["redis"] = rdb.Healthy(c.Request.Context())
		}
		if dbHealthy != nil {
			deps["database"] = dbHealthy(c.Request.Context())
		}
		response.OK(c, gin.H{"status": "ok", "dependencies": deps})
	})

	// WebSocket (token in query when RELAY_REQUIRE_TOKEN is set)
	router.GET("/ws", wsServer.ServeWs)

	api := router.Group("/api")
	{
		api.GET("/session", sessionHandler.Status)

		admin := api.Group("")
		admin.Use(middleware.AdminKey(cfg.Admin.KeyHash))
		admin.POST("/session/broadcast/end", sessionHandler.EndBroadcast)
		admin.POST("/auth/token", authHandler.IssueToken)
		if sessionLogHandler != nil {
			admin.GET("/participants", sessionLogHandler.GetParticipants)
		}

		if broadcastHandler != nil {
			api.GET("/broadcasts", broadcastHandler.List)
			api.GET("/broadcasts/:id", broadcastHandler.Get)
		}

		if recordingRepo != nil {
			var presigner recordings.Presigner
			if s3Client != nil {
				presigner = s3Client
			}
			recordingHandler := recordings.NewHandler(recordingRepo, presigner, logger)
			protected := api.Group("/recordings")
			protected.Use(middleware.JWT(jwtService))
			protected.GET("", recordingHandler.List)
			protected.GET("/:id/download-url", middleware.RequireRole(models.RoleBroadcaster), recordingHandler.GenerateDownloadURL)
		}
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	wsCancel()
	if err := wsServer.Wait(shutdownCtx); err != nil {
		logger.Warn("sockets still open at shutdown", zap.Error(err))
	}
	bgCancel()
	for _, done := range background {
		select {
		case <-done:
		case <-shutdownCtx.Done():
		}
	}
	logger.Info("server stopped")
}

// socketAuthenticator turns a socket token into the identity the transport
// checks requested roles against.
func socketAuthenticator(jwtService *auth.JWTService) realtime.Authenticator {
	return func(token string) (realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return realtime.Identity{}, err
		}
		return realtime.Identity{UserID: claims.UserID, Name: claims.Name, MaxRole: claims.Role}, nil
	}
}

func newLogger() (*zap.Logger, zap.AtomicLevel) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger, config.Level
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/Sc00tz/FridgeNotes/internal/handler/http"
	wsHandler "github.com/Sc00tz/FridgeNotes/internal/handler/websocket"
	"github.com/Sc00tz/FridgeNotes/internal/hub"
	gormpersistence "github.com/Sc00tz/FridgeNotes/internal/infra/persistence/gorm"
	"github.com/Sc00tz/FridgeNotes/internal/infra/setup"
	redisstate "github.com/Sc00tz/FridgeNotes/internal/infra/state/redis"
	"github.com/Sc00tz/FridgeNotes/internal/middleware"
	"github.com/Sc00tz/FridgeNotes/internal/service"
	"github.com/Sc00tz/FridgeNotes/internal/tasks"
	"github.com/Sc00tz/FridgeNotes/internal/worker"
)

// Config 存储从环境变量或 .env 文件加载的配置。
type Config struct {
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	ServerPort      string
	LogLevel        string
	RateLimitMax    int
	RateLimitWindow time.Duration
	JWTExpiryHours  int
	AppEnv          string
	KeyPrefix       string
}

// LoadConfig 从环境变量加载配置。
func LoadConfig() (*Config, error) {
	// .env 文件存在时优先加载，不存在时只用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),
		KeyPrefix:     os.Getenv("REDIS_KEY_PREFIX"),

		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,
		JWTExpiryHours:  24,
	}

	redisDBStr := os.Getenv("REDIS_DB")
	cfg.RedisDB, _ = strconv.Atoi(redisDBStr)

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fn:"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 包含应用的全部组件。
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqServer    *worker.WorkerServer
	Hub            *hub.Hub
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
	scheduler      *asynq.Scheduler
}

// NewApp 创建并初始化应用的全部组件。
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded successfully")

	// 基础设施
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.Info("Database initialized")

	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	// Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	noteRepo := gormpersistence.NewGormNoteRepository(db)
	shareRepo := gormpersistence.NewGormShareRepository(db)
	presenceRepo := redisstate.NewRedisPresenceRepository(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	// Services 和 Hub。服务把事件发给 Hub，Hub 的 join 鉴权
	// 又依赖 NoteService，鉴权器在服务建好后注入。
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}

	hubInstance := hub.NewHub(presenceRepo)

	noteService := service.NewNoteService(noteRepo, shareRepo, hubInstance)
	hubInstance.SetAuthorizer(noteService)
	shareService := service.NewShareService(shareRepo, noteRepo, userRepo, hubInstance)
	reminderService := service.NewReminderService(noteRepo, presenceRepo, hubInstance)
	log.Info("Services and hub initialized")

	// Handlers
	authHandler := httpHandler.NewAuthHandler(authService)
	noteHandler := httpHandler.NewNoteHandler(noteService)
	shareHandler := httpHandler.NewShareHandler(shareService)
	presenceHandler := httpHandler.NewPresenceHandler(noteService, presenceRepo)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance)
	log.Info("Handlers initialized")

	// Worker
	workerServer := worker.NewWorkerServer(redisClientOpt, reminderService, log)
	log.Info("Worker server initialized")

	// Gin 路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))

	router.Use(func(c *gin.Context) {
		allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
		if allowedOrigin == "" {
			allowedOrigin = "http://localhost:3000"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", middleware.Auth(cfg.JWTSecret), authHandler.Me)
	}
	noteRoutes := api.Group("/notes")
	noteRoutes.Use(middleware.Auth(cfg.JWTSecret))
	{
		noteRoutes.GET("", noteHandler.List)
		noteRoutes.POST("", noteHandler.Create)
		noteRoutes.PUT("/reorder", noteHandler.Reorder)
		noteRoutes.GET("/hidden", noteHandler.ListHidden)
		noteRoutes.GET("/:id", noteHandler.Get)
		noteRoutes.PUT("/:id", noteHandler.Update)
		noteRoutes.DELETE("/:id", noteHandler.Delete)
		noteRoutes.PATCH("/:id/pin", noteHandler.TogglePin)
		noteRoutes.PATCH("/:id/hide", shareHandler.ToggleHidden)
		noteRoutes.PUT("/:id/checklist/:itemId", noteHandler.UpdateChecklistItem)
		noteRoutes.GET("/:id/presence", presenceHandler.RoomPresence)
		noteRoutes.GET("/:id/shares", shareHandler.ListShares)
		noteRoutes.POST("/:id/shares", shareHandler.Share)
		noteRoutes.DELETE("/:id/shares/:shareId", shareHandler.Unshare)
	}
	wsRoutes := router.Group("/ws")
	wsRoutes.Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("", websocketHandler.HandleConnection)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	app := &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// Start 启动后台 goroutine 和 HTTP 服务器。
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// registerPeriodicTasks 注册周期任务并启动调度器。
func (a *App) registerPeriodicTasks() {
	a.scheduler = asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	task := tasks.NewReminderCheckTask()
	schedule := "@every 1m"
	entryID, err := a.scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register periodic reminder check task: %v", err)
	} else {
		a.Log.Infof("Periodic reminder check task registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := a.scheduler.Run(); err != nil {
			if !errors.Is(err, asynq.ErrServerClosed) {
				a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
			} else {
				a.Log.Info("Asynq scheduler stopped.")
			}
		}
	}()
}

// Shutdown 优雅关闭应用。
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}

	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	a.Log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 记录每个 HTTP 请求的结构化日志。
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}

package app

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	// ConfigFile 热加载监听的配置文件，为空时不监听
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	hub             *service.NotificationHub
	origins         *security.OriginList
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	course        *repository.CourseRepository
	content       *repository.ContentRepository
	enrollment    *repository.EnrollmentRepository
	progress      *repository.ProgressRepository
	quiz          *repository.QuizRepository
	assignment    *repository.AssignmentRepository
	communication *repository.CommunicationRepository
	discussion    *repository.DiscussionRepository
	engagement    *repository.EngagementRepository
	learningPath  *repository.LearningPathRepository
	payment       *repository.PaymentRepository
	gamification  *repository.GamificationRepository
	dashboard     *repository.DashboardRepository
}

type services struct {
	auth          *service.AuthService
	user          *service.UserService
	storage       *service.StorageService
	course        *service.CourseService
	content       *service.ContentService
	enrollment    *service.EnrollmentService
	progress      *service.ProgressService
	quiz          *service.QuizService
	ai            *service.AIService
	assignment    *service.AssignmentService
	communication *service.CommunicationService
	notification  *service.NotificationService
	discussion    *service.DiscussionService
	engagement    *service.EngagementService
	learningPath  *service.LearningPathService
	payment       *service.PaymentService
	gamification  *service.GamificationService
	dashboard     *service.DashboardService
}

type controllers struct {
	auth          *controller.AuthController
	user          *controller.UserController
	course        *controller.CourseController
	content       *controller.ContentController
	enrollment    *controller.EnrollmentController
	quiz          *controller.QuizController
	assignment    *controller.AssignmentController
	communication *controller.CommunicationController
	notification  *controller.NotificationController
	discussion    *controller.DiscussionController
	engagement    *controller.EngagementController
	learningPath  *controller.LearningPathController
	payment       *controller.PaymentController
	gamification  *controller.GamificationController
	dashboard     *controller.DashboardController
	health        *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		course:        repository.NewCourseRepository(db),
		content:       repository.NewContentRepository(db),
		enrollment:    repository.NewEnrollmentRepository(db),
		progress:      repository.NewProgressRepository(db),
		quiz:          repository.NewQuizRepository(db),
		assignment:    repository.NewAssignmentRepository(db),
		communication: repository.NewCommunicationRepository(db),
		discussion:    repository.NewDiscussionRepository(db),
		engagement:    repository.NewEngagementRepository(db),
		learningPath:  repository.NewLearningPathRepository(db),
		payment:       repository.NewPaymentRepository(db),
		gamification:  repository.NewGamificationRepository(db),
		dashboard:     repository.NewDashboardRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	cache := service.NewStatsCache(rdb, time.Duration(cfg.Redis.StatsTTL)*time.Second)

	a.hub = service.NewNotificationHub()
	go a.hub.Run()
	s.notification = service.NewNotificationService(repos.communication, a.hub)

	s.storage = service.NewStorageService(cfg.Storage)
	s.gamification = service.NewGamificationService(
		db,
		repos.user,
		repos.gamification,
		repos.progress,
		repos.enrollment,
		repos.quiz,
		cfg.Gamification,
	)
	s.auth = service.NewAuthService(repos.user, cfg.JWT)
	s.user = service.NewUserService(repos.user, s.storage, s.gamification)
	s.course = service.NewCourseService(repos.course, s.storage, cache)
	s.enrollment = service.NewEnrollmentService(db, repos.course, repos.enrollment, s.notification, cache)
	s.progress = service.NewProgressService(
		db,
		repos.course,
		repos.content,
		repos.enrollment,
		repos.progress,
		s.gamification,
		s.notification,
		cache,
		cfg.Gamification,
	)
	s.content = service.NewContentService(repos.content, repos.course, repos.enrollment, s.progress, s.storage, nil)
	s.quiz = service.NewQuizService(
		db,
		repos.quiz,
		repos.course,
		repos.content,
		repos.enrollment,
		s.gamification,
		s.notification,
		cfg.Gamification,
	)
	s.ai = service.NewAIService(repos.course, service.NewChatCompletionClient(cfg.AI))
	s.assignment = service.NewAssignmentService(repos.assignment, repos.course, repos.content, repos.enrollment, s.storage, s.notification)
	s.communication = service.NewCommunicationService(repos.communication, repos.user, repos.course, repos.enrollment, s.notification)
	s.discussion = service.NewDiscussionService(repos.discussion, repos.course, repos.enrollment)
	s.engagement = service.NewEngagementService(db, repos.engagement, repos.course, repos.content, repos.enrollment, cache)
	s.learningPath = service.NewLearningPathService(db, repos.learningPath, repos.course, s.enrollment)
	s.payment = service.NewPaymentService(
		db,
		repos.payment,
		repos.course,
		repos.user,
		s.enrollment,
		service.NewMidtransGateway(cfg.Payment),
		s.notification,
		cache,
		cfg.Payment,
	)
	s.dashboard = service.NewDashboardService(repos.dashboard, repos.payment, repos.enrollment, repos.user, s.gamification, cache)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:          controller.NewAuthController(s.auth, s.user),
		user:          controller.NewUserController(s.user),
		course:        controller.NewCourseController(s.course),
		content:       controller.NewContentController(s.content),
		enrollment:    controller.NewEnrollmentController(s.enrollment, s.progress),
		quiz:          controller.NewQuizController(s.quiz, s.ai),
		assignment:    controller.NewAssignmentController(s.assignment),
		communication: controller.NewCommunicationController(s.communication),
		notification:  controller.NewNotificationController(s.notification, a.hub),
		discussion:    controller.NewDiscussionController(s.discussion),
		engagement:    controller.NewEngagementController(s.engagement),
		learningPath:  controller.NewLearningPathController(s.learningPath),
		payment:       controller.NewPaymentController(s.payment),
		gamification:  controller.NewGamificationController(s.gamification),
		dashboard:     controller.NewDashboardController(s.dashboard),
		health:        controller.NewHealthController(a.DB, a.Redis),
	}
}

func rateWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.origins = security.NewOriginList(cfg.CORS.AllowedOrigins)
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg))

	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())

	// 热加载：日志级别、CORS 白名单、限流参数
	a.RegisterConfigCallback(logger.ApplyConfig)
	a.RegisterConfigCallback(func(c *config.Config) { a.origins.Set(c.CORS.AllowedOrigins) })
	a.RegisterConfigCallback(func(c *config.Config) { a.limiter.Update(c.RateLimit.MaxRequests, rateWindow(c)) })
}

// setup 组装仓储、服务、控制器与路由，DB 与 Redis 需已就绪
func (a *App) setup() {
	gin.SetMode(a.Config.Server.Mode)
	util.RegisterValidators()

	repos := a.initRepositories(a.DB)
	services := a.initServices(repos, a.Config, a.DB, a.Redis)
	controllers := a.initControllers(services)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if a.Config.Server.Mode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, controllers, a.Config)

	if a.Config.Storage.Type == util.StorageLocal || a.Config.Storage.Type == "" {
		root := a.Config.Storage.LocalPath
		if root == "" {
			root = "./uploads"
		}
		if err := os.MkdirAll(root, os.ModePerm); err != nil {
			logger.Log.Warn("create upload dir failed", zap.String("path", root), zap.Error(err))
		}
		router.Static("/uploads", root)
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需显式 --migrate
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存只是加速层，连不上时降级为直接查库
		logger.Log.Warn("Failed to initialize redis, stats cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("lms-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setup()
	return app
}

// Close 释放后台 goroutine 与外部连接
func (a *App) Close() {
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.ConfigFile != "" {
		if err := configwatcher.Watch(watchCtx, a.ConfigFile, a.applyConfig); err != nil {
			logger.Log.Warn("config hot reload disabled", zap.Error(err))
		}
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// WebSocket 连接已被接管，Shutdown 不会关闭它们
	a.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close()

	logger.Log.Info("Server exiting")
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizdeck-api/internal/config"
	"github.com/yourusername/quizdeck-api/internal/handler"
	"github.com/yourusername/quizdeck-api/internal/middleware"
	pgRepo "github.com/yourusername/quizdeck-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/quizdeck-api/internal/repository/redis"
	"github.com/yourusername/quizdeck-api/internal/service"
	ws "github.com/yourusername/quizdeck-api/internal/websocket"
	"github.com/yourusername/quizdeck-api/pkg/auth"
	"github.com/yourusername/quizdeck-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	identityRepo := pgRepo.NewUserIdentityRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	subscriptionRepo := pgRepo.NewSubscriptionRepo(db)
	notificationRepo := pgRepo.NewNotificationRepo(db)
	refreshTokenRepo := pgRepo.NewRefreshTokenRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Создаем контекст с отменой для корректного завершения фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем WebSocket хаб для push-уведомлений
	hub := ws.NewHub()
	go hub.Run()

	// Инициализируем сервисы
	refreshTTL := time.Duration(cfg.Auth.RefreshTokenLifetimeDays) * 24 * time.Hour
	authService, err := service.NewAuthService(userRepo, refreshTokenRepo, jwtService, refreshTTL)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	var googleService *service.GoogleOAuthService
	if cfg.GoogleOAuth.Enabled {
		googleService, err = service.NewGoogleOAuthService(userRepo, identityRepo, authService, cfg.GoogleOAuth)
		if err != nil {
			log.Printf("Failed to initialize GoogleOAuthService: %v", err)
			os.Exit(1)
		}
		log.Println("Вход через Google включен")
	}

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		log.Println("Отправка писем через Resend включена")
	}

	notificationService := service.NewNotificationService(notificationRepo, hub)
	quizService := service.NewQuizService(quizRepo, questionRepo, userRepo, cacheRepo, notificationService)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, questionRepo, userRepo, notificationService, db)
	userService := service.NewUserService(userRepo, cacheRepo)
	subscriptionService := service.NewSubscriptionService(
		subscriptionRepo,
		userRepo,
		emailService,
		notificationService,
		db,
		cfg.Subscriptions.Provider,
		cfg.Subscriptions.CheckoutBaseURL,
	)

	// Фоновая очистка истекших refresh-токенов
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deleted, err := refreshTokenRepo.DeleteExpired()
				if err != nil {
					log.Printf("Ошибка при очистке истекших refresh-токенов: %v", err)
				} else if deleted > 0 {
					log.Printf("Удалено истекших refresh-токенов: %d", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, googleService)
	quizHandler := handler.NewQuizHandler(quizService)
	attemptHandler := handler.NewAttemptHandler(attemptService, quizService)
	userHandler := handler.NewUserHandler(userService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, cfg.Subscriptions.WebhookSecret)
	wsHandler := handler.NewWSHandler(hub, jwtService, cfg.WebSocket)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimiter.Limit(middleware.StrictAuthRateLimitConfig()), authHandler.Register)
			authGroup.POST("/login", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.Login)
			authGroup.POST("/refresh", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/google", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.GoogleExchange)

			authedAuth := authGroup.Group("")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.POST("/logout-all", authHandler.LogoutAll)
				authedAuth.GET("/me", authHandler.Me)
				authedAuth.POST("/google/link", authHandler.GoogleLink)
			}
		}

		// Профиль текущего пользователя
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", userHandler.GetProfile)
			users.PUT("/me", userHandler.UpdateProfile)
		}

		// Лидерборд (публичный маршрут)
		api.GET("/leaderboard", userHandler.GetLeaderboard)

		// Викторины
		quizzes := api.Group("/quizzes")
		quizzes.Use(authMiddleware.RequireAuth())
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)

			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.GET("/with-questions", quizHandler.GetQuizWithQuestions)
				quizWithID.PUT("", quizHandler.UpdateQuiz)
				quizWithID.DELETE("", quizHandler.DeleteQuiz)
				quizWithID.GET("/results", attemptHandler.ListQuizResults)

				quizWithID.POST("/questions", quizHandler.AddQuestions)
				quizWithID.DELETE("/questions/:question_id",
					middleware.ExtractUintParam("question_id", "questionID"),
					quizHandler.DeleteQuestion,
				)

				// Старт попытки идемпотентен: существующая in_progress
				// попытка возвращается вместо создания новой
				quizWithID.POST("/attempts", attemptHandler.StartAttempt)
			}
		}

		// Попытки прохождения
		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.GET("", attemptHandler.ListInProgress)
			attempts.GET("/history", attemptHandler.ListHistory)

			attemptWithID := attempts.Group("/:attempt_id")
			attemptWithID.Use(middleware.ExtractUUIDParam("attempt_id", "attemptID"))
			{
				attemptWithID.GET("", attemptHandler.GetAttempt)
				attemptWithID.PUT("/answers", rateLimiter.Limit(middleware.AutosaveRateLimitConfig()), attemptHandler.Autosave)
				attemptWithID.POST("/submit", attemptHandler.Submit)
				attemptWithID.POST("/abandon", attemptHandler.Abandon)
			}
		}

		// Уведомления
		notifications := api.Group("/notifications")
		notifications.Use(authMiddleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read",
				middleware.ExtractUintParam("id", "notificationID"),
				notificationHandler.MarkRead,
			)
		}

		// Подписки
		subscriptions := api.Group("/subscriptions")
		{
			// Вебхук провайдера аутентифицируется общим секретом, не JWT
			subscriptions.POST("/webhook", subscriptionHandler.Webhook)

			authedSubs := subscriptions.Group("")
			authedSubs.Use(authMiddleware.RequireAuth())
			{
				authedSubs.POST("/checkout", subscriptionHandler.CreateCheckout)
				authedSubs.GET("/status", subscriptionHandler.GetStatus)
				authedSubs.GET("", subscriptionHandler.ListSubscriptions)
			}
		}

		// Администрирование
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/quizzes/:id/results/export",
				middleware.ExtractUintParam("id", "quizID"),
				attemptHandler.ExportQuizResults,
			)
		}
	}

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Завершаем фоновые горутины и WebSocket-подключения
	cancel()
	hub.Shutdown()

	// Graceful shutdown HTTP сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited")
}

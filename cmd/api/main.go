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

	"github.com/yourusername/tutorlink-api/internal/config"
	"github.com/yourusername/tutorlink-api/internal/handler"
	"github.com/yourusername/tutorlink-api/internal/middleware"
	pgRepo "github.com/yourusername/tutorlink-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/tutorlink-api/internal/repository/redis"
	"github.com/yourusername/tutorlink-api/internal/service"
	"github.com/yourusername/tutorlink-api/pkg/database"
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
	verificationRepo := pgRepo.NewVerificationRepo(db)
	userRepo := pgRepo.NewUserRepo(db)

	cooldownRepo, err := redisRepo.NewCooldownRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CooldownRepo: %v", err)
		os.Exit(1)
	}

	// SMS-диспетчер: боевой HTTP-шлюз или noop для разработки
	var smsService service.SMSService
	switch cfg.SMS.Provider {
	case "gateway":
		smsService, err = service.NewGatewaySMSService(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.Sender)
		if err != nil {
			log.Printf("Failed to initialize SMS gateway: %v", err)
			os.Exit(1)
		}
	default:
		log.Println("SMS provider is 'noop': verification codes will not be delivered")
		smsService = &service.NoopSMSService{}
	}

	// Приветственное письмо после регистрации (опционально)
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.SMS.ResendAPIKey != "" && cfg.SMS.EmailFrom != "" {
		emailService, err = service.NewResendEmailService(cfg.SMS.ResendAPIKey, cfg.SMS.EmailFrom)
		if err != nil {
			log.Printf("Failed to initialize Resend email service: %v", err)
			os.Exit(1)
		}
	}

	// Инициализируем сервисы
	verificationService, err := service.NewVerificationService(
		verificationRepo,
		userRepo,
		cooldownRepo,
		smsService,
		cfg.Verification.CodeTTL(),
		cfg.Verification.TokenTTL(),
		cfg.Verification.ResendCooldown(),
		cfg.SMS.CountryCode,
	)
	if err != nil {
		log.Printf("Failed to initialize VerificationService: %v", err)
		os.Exit(1)
	}

	registrationService, err := service.NewRegistrationService(verificationRepo, userRepo, emailService)
	if err != nil {
		log.Printf("Failed to initialize RegistrationService: %v", err)
		os.Exit(1)
	}

	// Контекст с отменой для фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Фоновая очистка записей верификации за пределами окна хранения.
	// Физическая очистка — гигиена: живость проверяется при чтении.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Printf("Запуск периодической очистки записей верификации (окно хранения %v)", cfg.Verification.Retention())

		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-cfg.Verification.Retention())
				purged, err := verificationRepo.DeleteCreatedBefore(cutoff)
				if err != nil {
					log.Printf("Ошибка при очистке записей верификации: %v", err)
				} else if purged > 0 {
					log.Printf("Очистка записей верификации: удалено %d", purged)
				}
			case <-ctx.Done():
				log.Println("Завершение работы горутины очистки записей верификации")
				return
			}
		}
	}()

	// Инициализируем обработчики и middleware
	verificationHandler := handler.NewVerificationHandler(verificationService, registrationService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
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
		AllowOrigins:     []string{"https://tutorlink.hk", "https://admin.tutorlink.hk", "http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			strict := middleware.StrictAuthRateLimitConfig()
			authGroup.POST("/request-code", rateLimiter.Limit(strict), verificationHandler.RequestCode)
			authGroup.POST("/verify-code", rateLimiter.Limit(strict), verificationHandler.VerifyCode)
			authGroup.POST("/register", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), verificationHandler.Register)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Запускаем HTTP сервер с graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Сервер запущен на порту %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Ошибка HTTP сервера: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал завершения, останавливаем сервер...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Ошибка при закрытии Redis клиента: %v", err)
	}

	log.Println("Сервер остановлен")
}

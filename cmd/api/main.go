package main

import (
	"os"
	"strings"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/gateway"
	"backend/internal/handler"
	"backend/internal/mailer"
	"backend/internal/middleware"
	"backend/internal/pdfgen"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Coaching Back-Office API
// @version         1.0
// @description     Admin API for a leadership-coaching practice: invoices, payments, leads, content and analytics.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info().Msg("no configs/.env file found, relying on process environment")
	}

	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatal().Err(err).Msg("invalid logging configuration")
	}

	dsn := buildDSN()
	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// WebSocket hub for admin dashboard events
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Outbound integrations
	mail := mailer.NewSMTPMailer(mailer.ConfigFromEnv())
	pdfRenderer := pdfgen.NewInvoiceRenderer()
	paymentGateway := gateway.NewStripeGateway(gateway.ConfigFromEnv())

	// Repository -> Service -> Handler
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	testimonialRepo := repository.NewTestimonialRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, tokenRepo, auditService, mail)
	invoiceService := service.NewInvoiceService(invoiceRepo, txManager, auditService, mail, pdfRenderer)
	paymentService := service.NewPaymentService(paymentRepo, invoiceService, auditService, mail, paymentGateway, wsHub)
	analyticsService := service.NewAnalyticsService(invoiceRepo, paymentRepo, leadRepo)
	leadService := service.NewLeadService(leadRepo, auditService, wsHub)
	resourceService := service.NewResourceService(resourceRepo, auditService)
	testimonialService := service.NewTestimonialService(testimonialRepo, auditService)

	authHandler := handler.NewAuthHandler(authService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	leadHandler := handler.NewLeadHandler(leadService)
	resourceHandler := handler.NewResourceHandler(resourceService)
	testimonialHandler := handler.NewTestimonialHandler(testimonialService)
	auditHandler := handler.NewAuditHandler(auditService)
	emailHandler := handler.NewEmailHandler(mail)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	authHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	analyticsHandler.RegisterRoutes(router.Group(""))
	leadHandler.RegisterRoutes(router.Group(""))
	resourceHandler.RegisterRoutes(router.Group(""))
	testimonialHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	emailHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func buildDSN() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	dbHost := get("DB_HOST", "localhost")
	dbPort := get("DB_PORT", "5432")
	dbUser := get("DB_USER", "postgres")
	dbPassword := get("DB_PASSWORD", "postgres")
	dbName := get("DB_NAME", "postgres")
	dbSslMode := get("DB_SSLMODE", "disable")

	return "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode
}

func allowedOrigins() []string {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		return strings.Split(v, ",")
	}
	return []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}
}

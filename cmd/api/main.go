package main

import (
	"fmt"
	"net/http"
	"os"

	"quid/internal/config"
	"quid/internal/database"
	"quid/internal/handlers"
	"quid/internal/logger"
	"quid/internal/middleware"
	"quid/internal/services"
	"quid/internal/snapshot"
	"quid/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "quid/internal/docs" // Import swagger docs
)

// @title           Quid API
// @version         1.0
// @description     Quid is a personal finance tracker for accounts, transactions, budgets, and savings pools, with every amount held in integer pence.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom validation tags with Gin's binding engine
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Snapshot store for on-disk backups
	store, err := snapshot.NewStore(appConfig.SnapshotDir)
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, accountService)
	poolService := services.NewPoolService(db, accountService)
	budgetService := services.NewBudgetService(db)
	analyticsService := services.NewAnalyticsService(db)
	exportService := services.NewExportService(db, accountService, store)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	poolHandler := handlers.NewPoolHandler(poolService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	exportHandler := handlers.NewExportHandler(exportService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.POST("/recalculate", accountHandler.Recalculate)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)
	accounts.GET("/:id/transactions", transactionHandler.GetAccountTransactions)
	accounts.GET("/:id/pools", poolHandler.GetAccountPools)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/transfer", transactionHandler.CreateTransfer)
	transactions.POST("/generate", transactionHandler.GenerateAllInstances)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/generate", transactionHandler.GenerateInstances)
	transactions.PUT("/:id/pool", poolHandler.AssignTransaction)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.POST("/refresh", budgetHandler.RefreshBudgets)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.GET("/:id/status", budgetHandler.GetBudgetStatus)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	// Pool routes
	pools := protected.Group("/pools")
	pools.POST("", poolHandler.CreatePool)
	pools.GET("/:id", poolHandler.GetPool)
	pools.PUT("/:id", poolHandler.UpdatePool)
	pools.DELETE("/:id", poolHandler.DeletePool)

	// Analytics routes
	analytics := protected.Group("/analytics")
	analytics.GET("/spending", analyticsHandler.GetSpendingByCategory)
	analytics.GET("/monthly", analyticsHandler.GetMonthlySummary)

	// Export and import routes
	export := protected.Group("/export")
	export.GET("/json", exportHandler.ExportJSON)
	export.GET("/csv", exportHandler.ExportCSV)
	export.POST("/backup", exportHandler.Backup)
	protected.POST("/import/json", exportHandler.ImportJSON)

	log.Infof("Starting Quid backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

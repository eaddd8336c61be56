package v1

import (
	"github.com/gin-gonic/gin"

	appctx "clinicore/internal/core/context"
	"clinicore/internal/domain/adminstock"
	"clinicore/internal/domain/audit"
	"clinicore/internal/domain/auth"
	"clinicore/internal/domain/catalogs/franchise"
	"clinicore/internal/domain/catalogs/medicine"
	"clinicore/internal/domain/catalogs/patient"
	"clinicore/internal/domain/documents/consultation"
	"clinicore/internal/domain/documents/medicinebill"
	"clinicore/internal/domain/documents/sale"
	"clinicore/internal/domain/documents/transport"
	"clinicore/internal/domain/stockledger"
	"clinicore/internal/infrastructure/http/v1/handlers"
	"clinicore/internal/infrastructure/http/v1/middleware"
	"clinicore/internal/infrastructure/storage/postgres"
	"clinicore/internal/infrastructure/storage/postgres/auth_repo"
	"clinicore/internal/infrastructure/storage/postgres/catalog_repo"
	"clinicore/internal/infrastructure/storage/postgres/document_repo"
	"clinicore/internal/infrastructure/storage/postgres/ledger_repo"
	"clinicore/pkg/logger"
	"clinicore/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (health checks, numerator)
	Pool *postgres.Pool

	// TxManager owns transaction boundaries for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// JWTService issues tokens for the auth endpoints
	JWTService *auth.JWTService

	// Recorder persists audit entries for document mutations
	Recorder audit.Recorder
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()
	adminOnly := middleware.RequireRole(appctx.RoleAdmin)

	num := numerator.New(cfg.Pool)

	// Repositories
	medicineRepo := catalog_repo.NewMedicineRepo(cfg.TxManager)
	patientRepo := catalog_repo.NewPatientRepo(cfg.TxManager)
	franchiseRepo := catalog_repo.NewFranchiseRepo(cfg.TxManager)
	userRepo := auth_repo.NewUserRepo(cfg.TxManager)
	stockRepo := ledger_repo.NewStockRepo(cfg.TxManager)
	txnRepo := ledger_repo.NewTransactionRepo(cfg.TxManager)
	adminStockRepo := ledger_repo.NewAdminStockRepo(cfg.TxManager)
	billRepo := document_repo.NewMedicineBillRepo(cfg.TxManager)
	consultationRepo := document_repo.NewConsultationRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	transportRepo := document_repo.NewTransportRepo(cfg.TxManager)

	// Services
	medicineService := medicine.NewService(medicineRepo, cfg.TxManager, num)
	patientService := patient.NewService(patientRepo, cfg.TxManager, num)
	franchiseService := franchise.NewService(franchiseRepo, cfg.TxManager, num)
	authService := auth.NewService(userRepo, cfg.TxManager, cfg.JWTService, auth.DefaultServiceConfig())
	ledgerService := stockledger.NewService(stockRepo)
	adminStockService := adminstock.NewService(adminStockRepo, medicineService)

	billService := medicinebill.NewService(
		billRepo, franchiseService, patientService, medicineService,
		ledgerService, txnRepo, cfg.TxManager, num, cfg.Recorder,
	)
	consultationService := consultation.NewService(
		consultationRepo, franchiseService, patientService, medicineService,
		ledgerService, txnRepo, cfg.TxManager, num, cfg.Recorder,
	)
	saleService := sale.NewService(
		saleRepo, franchiseService, medicineService, ledgerService,
		txnRepo, transportRepo, cfg.TxManager, num, cfg.Recorder,
	)
	transportService := transport.NewService(
		transportRepo, saleRepo, medicineService, adminStockService,
		ledgerService, txnRepo, cfg.TxManager, num, cfg.Recorder,
	)

	// API v1
	api := router.Group("/api/v1")
	{
		// Public auth endpoints
		authHandler := handlers.NewAuthHandler(baseHandler, authService)
		api.POST("/auth/login", authHandler.Login)

		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		protected.POST("/auth/register", adminOnly, authHandler.Register)
		protected.GET("/auth/me", authHandler.Me)

		// Catalogs
		catalogs := protected.Group("/catalog")
		{
			medicineHandler := handlers.NewMedicineHandler(baseHandler, medicineService)
			RegisterCatalogRoutes(catalogs.Group("/medicines"), medicineHandler, adminOnly)

			franchiseHandler := handlers.NewFranchiseHandler(baseHandler, franchiseService)
			RegisterCatalogRoutes(catalogs.Group("/franchises"), franchiseHandler, adminOnly)

			// Patients are registered by franchises themselves, so writes
			// stay open to both roles; scoping happens in the handler.
			patientHandler := handlers.NewPatientHandler(baseHandler, patientService)
			patients := catalogs.Group("/patients")
			patients.GET("", patientHandler.List)
			patients.GET("/by-phone", patientHandler.FindByPhone)
			patients.GET("/:id", patientHandler.Get)
			patients.POST("", patientHandler.Create)
			patients.PUT("/:id", patientHandler.Update)
			patients.DELETE("/:id", adminOnly, patientHandler.Delete)
			patients.POST("/:id/deletion-mark", adminOnly, patientHandler.SetDeletionMark)
		}

		// Documents
		docs := protected.Group("/document")
		{
			billHandler := handlers.NewMedicineBillHandler(baseHandler, billService)
			bills := docs.Group("/medicine-bills")
			bills.GET("", billHandler.List)
			bills.GET("/:id", billHandler.Get)
			bills.POST("", billHandler.Create)

			consultationHandler := handlers.NewConsultationHandler(baseHandler, consultationService)
			consultations := docs.Group("/consultations")
			consultations.GET("", consultationHandler.List)
			consultations.GET("/:id", consultationHandler.Get)
			consultations.POST("", consultationHandler.Create)

			saleHandler := handlers.NewSaleHandler(baseHandler, saleService)
			sales := docs.Group("/sales")
			sales.Use(adminOnly)
			sales.GET("", saleHandler.List)
			sales.GET("/:id", saleHandler.Get)
			sales.POST("", saleHandler.Create)
			sales.PUT("/:id", saleHandler.Update)
			sales.DELETE("/:id", saleHandler.Delete)

			transportHandler := handlers.NewTransportHandler(baseHandler, transportService)
			transports := docs.Group("/transports")
			transports.GET("", transportHandler.List)
			transports.GET("/:id", transportHandler.Get)
			transports.POST("", adminOnly, transportHandler.Create)
			transports.PUT("/:id", adminOnly, transportHandler.Update)
			transports.POST("/:id/deliver", middleware.RequireRole(appctx.RoleFranchise), transportHandler.Deliver)
		}

		// Admin stock pool
		adminStockHandler := handlers.NewAdminStockHandler(baseHandler, adminStockService)
		adminStock := protected.Group("/admin-stock")
		adminStock.Use(adminOnly)
		{
			adminStock.GET("", adminStockHandler.List)
			adminStock.POST("/refill", adminStockHandler.Refill)
			adminStock.GET("/:medicineId", adminStockHandler.Balance)
			adminStock.GET("/:medicineId/batches", adminStockHandler.BatchLots)
		}

		// Franchise stock
		stockHandler := handlers.NewStockHandler(baseHandler, ledgerService)
		stock := protected.Group("/stock")
		{
			stock.GET("/batches", stockHandler.Batches)
			stock.GET("/balances", stockHandler.Balances)
			stock.GET("/history/:medicineId", stockHandler.History)
		}
	}

	return router
}

package router

import (
	"strconv"
	"time"

	"sika/config"
	"sika/internal/domain"
	"sika/internal/handler"
	"sika/internal/middleware"
	"sika/internal/repository"
	"sika/internal/service"
	"sika/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, log *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	agentRepo := repository.NewAgentRepository(db)
	orderRepo := repository.NewCommissionOrderRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	if err := settingRepo.SeedDefaults(map[string]string{
		domain.SettingMinWithdrawalAmount:   cfg.Withdrawal.MinAmount,
		domain.SettingMaxMonthlyWithdrawals: strconv.Itoa(cfg.Withdrawal.MaxMonthlyRequests),
	}); err != nil {
		log.Warn("settings seed failed", zap.Error(err))
	}

	hub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg, agentRepo)
	commissionSvc := service.NewCommissionService(db, orderRepo, agentRepo, log)
	orderSvc := service.NewOrderService(db, orderRepo, agentRepo, auditRepo, hub, log)
	withdrawalSvc := service.NewWithdrawalService(db, agentRepo, withdrawalRepo, commissionSvc, settingRepo, &cfg.Withdrawal, hub, log)
	settlementSvc := service.NewSettlementService(db, withdrawalRepo, orderRepo, agentRepo, auditRepo, hub, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo, log)
	saleHandler := handler.NewSaleHandler(saleRepo, log)
	commissionHandler := handler.NewCommissionHandler(commissionSvc, orderRepo, withdrawalRepo, log)
	withdrawalHandler := handler.NewWithdrawalHandler(&cfg.Withdrawal, withdrawalSvc, log)
	adminHandler := handler.NewAdminHandler(&cfg.Withdrawal, orderSvc, settlementSvc, withdrawalRepo, agentRepo, settingRepo, log)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/commissions/summary", commissionHandler.GetSummary)
			me.GET("/orders", commissionHandler.ListOrders)
			me.GET("/withdrawals", commissionHandler.ListWithdrawals)
			me.POST("/withdrawals", withdrawalHandler.Create)
		}

		sales := api.Group("/sales")
		sales.Use(authMw)
		{
			sales.POST("/data-orders", saleHandler.CreateDataOrder)
			sales.POST("/wholesale-orders", saleHandler.CreateWholesaleOrder)
			sales.POST("/referrals", saleHandler.CreateReferral)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.PATCH("/orders/:id/status", adminHandler.TransitionOrder)
			admin.POST("/withdrawals/:id/settle", adminHandler.SettleWithdrawal)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.GET("/agents", adminHandler.ListAgents)
			admin.GET("/settings", adminHandler.ListSettings)
			admin.PUT("/settings", adminHandler.UpdateSetting)
		}
	}

	r.GET("/ws/events", ws.UpgradeEventsWS(&cfg.JWT, hub))

	return r
}

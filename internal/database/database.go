package database

import (
	"sika/config"
	"sika/internal/domain"
	"sika/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Agent{},
		&models.DataOrder{},
		&models.WholesaleOrder{},
		&models.Referral{},
		&models.CommissionOrder{},
		&models.WithdrawalRequest{},
		&models.SystemSetting{},
		&models.AuditLog{},
	)
}

// SeedAdmin creates the bootstrap admin account if no admin exists.
func SeedAdmin(db *gorm.DB, log *zap.Logger) {
	var count int64
	db.Model(&models.Agent{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-change-me"), bcrypt.DefaultCost)
	if err != nil {
		log.Error("seed admin: hash failed", zap.Error(err))
		return
	}
	admin := &models.Agent{
		Name:         "Administrator",
		Email:        "admin@sika.local",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		log.Error("seed admin: create failed", zap.Error(err))
		return
	}
	log.Info("seeded admin account", zap.String("email", admin.Email))
}

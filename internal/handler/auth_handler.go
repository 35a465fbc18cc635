package handler

import (
	"net/http"

	"sika/internal/models"
	"sika/internal/repository"
	"sika/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc   *service.AuthService
	audit *repository.AuditLogRepository
	log   *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, audit *repository.AuditLogRepository, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, audit: audit, log: log}
}

type RegisterRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=128"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	MomoNumber string `json:"momo_number" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, access, refresh, err := h.svc.Register(req.Name, req.Email, req.Phone, req.MomoNumber, req.Password)
	if err != nil {
		if err == service.ErrEmailExists {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("register failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	h.auditLogin(a, "register", c)
	c.JSON(http.StatusCreated, gin.H{"agent": a, "access_token": access, "refresh_token": refresh})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, access, refresh, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCreds {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("login failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.auditLogin(a, "login", c)
	c.JSON(http.StatusOK, gin.H{"agent": a, "access_token": access, "refresh_token": refresh})
}

func (h *AuthHandler) auditLogin(a *models.Agent, action string, c *gin.Context) {
	if h.audit == nil {
		return
	}
	id := a.ID
	_ = h.audit.Create(&models.AuditLog{
		AgentID:  &id,
		Action:   action,
		Resource: "agent",
		IP:       c.ClientIP(),
	})
}

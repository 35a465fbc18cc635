package handler

import (
	"net/http"

	"sika/internal/middleware"
	"sika/internal/models"
	"sika/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleHandler is the thin sale-flow surface: it records the native sale and
// its commission event. Commission amounts are fixed here, at creation; the
// engine downstream only ever reads them.
type SaleHandler struct {
	sales *repository.SaleRepository
	log   *zap.Logger
}

func NewSaleHandler(sales *repository.SaleRepository, log *zap.Logger) *SaleHandler {
	return &SaleHandler{sales: sales, log: log}
}

type CreateDataOrderRequest struct {
	Network        string `json:"network" binding:"required,oneof=MTN VODAFONE AIRTELTIGO"`
	BundleMB       int    `json:"bundle_mb" binding:"required,min=1"`
	CustomerPhone  string `json:"customer_phone" binding:"required"`
	Price          string `json:"price" binding:"required"`
	CommissionRate string `json:"commission_rate" binding:"required"`
}

func (h *SaleHandler) CreateDataOrder(c *gin.Context) {
	var req CreateDataOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	price, rate, ok := parseMoneyPair(c, req.Price, req.CommissionRate)
	if !ok {
		return
	}
	order := &models.DataOrder{
		AgentID:        middleware.GetAgentID(c),
		Network:        req.Network,
		BundleMB:       req.BundleMB,
		CustomerPhone:  req.CustomerPhone,
		Price:          price,
		CommissionRate: rate,
	}
	event, err := h.sales.CreateDataOrder(order)
	if err != nil {
		h.log.Error("data order create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record order"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "commission_order": event})
}

type CreateWholesaleOrderRequest struct {
	ItemName       string `json:"item_name" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	UnitPrice      string `json:"unit_price" binding:"required"`
	CommissionRate string `json:"commission_rate" binding:"required"`
	DeliveryTown   string `json:"delivery_town"`
}

func (h *SaleHandler) CreateWholesaleOrder(c *gin.Context) {
	var req CreateWholesaleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unitPrice, rate, ok := parseMoneyPair(c, req.UnitPrice, req.CommissionRate)
	if !ok {
		return
	}
	order := &models.WholesaleOrder{
		AgentID:        middleware.GetAgentID(c),
		ItemName:       req.ItemName,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		CommissionRate: rate,
		DeliveryTown:   req.DeliveryTown,
	}
	event, err := h.sales.CreateWholesaleOrder(order)
	if err != nil {
		h.log.Error("wholesale order create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record order"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "commission_order": event})
}

type CreateReferralRequest struct {
	ReferredName  string `json:"referred_name" binding:"required"`
	ReferredPhone string `json:"referred_phone" binding:"required"`
	PropertyID    string `json:"property_id"`
	Bonus         string `json:"bonus" binding:"required"`
}

func (h *SaleHandler) CreateReferral(c *gin.Context) {
	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bonus, err := decimal.NewFromString(req.Bonus)
	if err != nil || bonus.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bonus amount"})
		return
	}
	ref := &models.Referral{
		AgentID:       middleware.GetAgentID(c),
		ReferredName:  req.ReferredName,
		ReferredPhone: req.ReferredPhone,
		PropertyID:    req.PropertyID,
		Bonus:         bonus,
	}
	event, err := h.sales.CreateReferral(ref)
	if err != nil {
		h.log.Error("referral create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record referral"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"referral": ref, "commission_order": event})
}

func parseMoneyPair(c *gin.Context, priceStr, rateStr string) (decimal.Decimal, decimal.Decimal, bool) {
	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return decimal.Zero, decimal.Zero, false
	}
	rate, err := decimal.NewFromString(rateStr)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission rate"})
		return decimal.Zero, decimal.Zero, false
	}
	return price, rate, true
}

package service

import (
	"context"
	"fmt"

	"sika/internal/domain"
	"sika/internal/models"
	"sika/internal/repository"
	"sika/internal/ws"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allowedTransitions is the order lifecycle: PENDING -> PROCESSING ->
// COMPLETED, with cancellation from either non-terminal state. COMPLETED and
// CANCELED have no outgoing edges.
var allowedTransitions = map[string]map[string]bool{
	domain.OrderStatusPending: {
		domain.OrderStatusProcessing: true,
		domain.OrderStatusCompleted:  true,
		domain.OrderStatusCanceled:   true,
	},
	domain.OrderStatusProcessing: {
		domain.OrderStatusCompleted: true,
		domain.OrderStatusCanceled:  true,
	},
}

// OrderService drives commission order status transitions. Entering COMPLETED
// is the sole point where a commission becomes eligible for aggregation; the
// amount itself was fixed at creation and is never recomputed here.
type OrderService struct {
	db     *gorm.DB
	orders *repository.CommissionOrderRepository
	agents *repository.AgentRepository
	audit  *repository.AuditLogRepository
	hub    *ws.Hub
	log    *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	orders *repository.CommissionOrderRepository,
	agents *repository.AgentRepository,
	audit *repository.AuditLogRepository,
	hub *ws.Hub,
	log *zap.Logger,
) *OrderService {
	return &OrderService{db: db, orders: orders, agents: agents, audit: audit, hub: hub, log: log}
}

// Transition moves the order to target. Re-requesting the current status is a
// no-op; any transition out of a terminal status fails with
// ErrInvalidTransition; an unknown target fails with ErrInvalidStatus. The
// status write is a compare-and-swap on (id, current status), so two racing
// admin actions cannot both succeed.
func (s *OrderService) Transition(ctx context.Context, orderID uint, target string, actorID *uint, ip string) (*models.CommissionOrder, error) {
	if !domain.ValidOrderStatus(target) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, target)
	}
	for attempt := 0; attempt < 3; attempt++ {
		order, err := s.orders.GetByID(orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == target {
			// Idempotent: includes re-completing a completed order.
			return order, nil
		}
		if domain.TerminalOrderStatus(order.Status) {
			return nil, fmt.Errorf("%w: %s is terminal", domain.ErrInvalidTransition, order.Status)
		}
		if !allowedTransitions[order.Status][target] {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, target)
		}
		expected := order.Status
		var swapped bool
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rows, err := s.orders.CASStatus(tx, orderID, expected, target)
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil // lost the race; re-read and re-evaluate
			}
			swapped = true
			if target == domain.OrderStatusCompleted {
				// Accrual happens exactly once because the CAS admits
				// exactly one transition into COMPLETED.
				if err := s.agents.AddTotalCommissions(tx, order.AgentID, order.CommissionAmount); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !swapped {
			continue
		}
		order.Status = target
		s.recordAudit(actorID, ip, order, expected, target)
		s.publish(order, target)
		return order, nil
	}
	return nil, fmt.Errorf("%w: concurrent status updates", domain.ErrInvalidTransition)
}

func (s *OrderService) recordAudit(actorID *uint, ip string, order *models.CommissionOrder, from, to string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		AgentID:    actorID,
		Action:     "order.transition",
		Resource:   "commission_order",
		ResourceID: fmt.Sprintf("%d", order.ID),
		IP:         ip,
		Metadata:   fmt.Sprintf(`{"from":%q,"to":%q}`, from, to),
	}
	if err := s.audit.Create(entry); err != nil {
		s.log.Warn("audit write failed", zap.Error(err))
	}
}

func (s *OrderService) publish(order *models.CommissionOrder, target string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ws.Event{
		Type:    domain.EventOrderStatusChanged,
		AgentID: order.AgentID,
		Payload: map[string]interface{}{"order_id": order.ID, "status": target},
	})
	if target == domain.OrderStatusCompleted {
		s.hub.Publish(ws.Event{Type: domain.EventSummaryChanged, AgentID: order.AgentID})
	}
}

package payments

import (
	"aworld/src/config"
	"aworld/src/models"
	"aworld/src/types"
	"context"
	"fmt"

	"gorm.io/datatypes"
)

// PlaceOrder creates the order together with its invoice. The invoice starts in
// the status the order's status maps to and is due in 30 days.
func (s *Service) PlaceOrder(ctx context.Context, body types.CreateOrderRequestBody) (*models.Order, error) {
	if body.TotalAmount == nil {
		return nil, types.NewValidationError("total_amount", "required")
	}
	items := make([]models.LineItem, 0, len(body.Items))
	for i, it := range body.Items {
		if it.Price == nil {
			return nil, types.NewValidationError(fmt.Sprintf("items.%d.price", i), "required")
		}
		li := models.LineItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: *it.Price}
		li.Recalculate()
		items = append(items, li)
	}
	total := *body.TotalAmount
	status := types.OrderStatus(body.Status)
	if status == "" {
		status = types.ORDER_PENDING
	}
	method := types.PaymentMethod(body.PaymentMethod)
	if !method.Valid() {
		return nil, types.NewValidationError("payment_method", "unknown payment method")
	}

	owner := body.UserID
	if owner == nil {
		owner = s.opts.FallbackUserID
	}

	o := &models.Order{
		CustomerName:  body.CustomerName,
		CustomerEmail: body.CustomerEmail,
		CustomerPhone: body.CustomerPhone,
		UserID:        owner,
		TotalAmount:   total,
		Currency:      body.Currency,
		PaymentMethod: method,
		PaymentID:     body.PaymentID,
		Status:        status,
		Items:         datatypes.NewJSONSlice(items),
		Notes:         body.Notes,
	}
	now := s.now()
	inv := &models.Invoice{
		UserID:        owner,
		Amount:        total,
		Currency:      body.Currency,
		Status:        status.InvoiceStatus(),
		PaymentMethod: string(method),
		PaymentID:     body.PaymentID,
		IssuedAt:      now,
		DueDate:       now.Add(config.ORDER_INVOICE_DUE_IN),
	}
	if err := s.orders.Place(ctx, o, inv); err != nil {
		return nil, err
	}
	if inv.Status != types.INVOICE_PENDING {
		s.publish(ctx, invoiceEvent(inv, "order", now))
	}
	return o, nil
}

// UpdateOrderStatus moves the order and cascades the mapped status to its invoice.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uint, status types.OrderStatus) (*models.Order, error) {
	o, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, orderEvent(o, s.now()))
	return o, nil
}

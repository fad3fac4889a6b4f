package ledger

import (
	"aworld/src/db"
	"aworld/src/models"
	"aworld/src/types"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type LedgerSuite struct {
	suite.Suite
	DB         *gorm.DB
	Invoices   *InvoiceLedger
	Orders     *OrderLedger
	Quotations *QuotationLedger
	Now        time.Time
	ctx        context.Context
}

func (s *LedgerSuite) SetupTest() {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(s.T().Name())
	d, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(d))
	s.DB = d
	s.Now = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.Now }

	s.Invoices = NewInvoiceLedger(d)
	s.Invoices.now = clock
	s.Orders = NewOrderLedger(d, s.Invoices)
	s.Orders.now = clock
	s.Quotations = NewQuotationLedger(d)
	s.Quotations.now = clock
	s.ctx = context.Background()
}

func (s *LedgerSuite) TearDownTest() {
	if inner, err := s.DB.DB(); err == nil {
		inner.Close()
	}
}

func (s *LedgerSuite) newInvoice(amount string, status types.InvoiceStatus) *models.Invoice {
	return &models.Invoice{
		Amount:        decimal.RequireFromString(amount),
		Status:        status,
		PaymentMethod: string(types.METHOD_CASH),
		DueDate:       s.Now.Add(7 * 24 * time.Hour),
	}
}

func (s *LedgerSuite) newOrder(status types.OrderStatus) *models.Order {
	return &models.Order{
		CustomerName:  "Noura Al-Harbi",
		TotalAmount:   decimal.RequireFromString("250.00"),
		Currency:      "SAR",
		PaymentMethod: types.METHOD_CASH,
		Status:        status,
		Items: []models.LineItem{
			{Name: "Kayak rental", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
			{Name: "Life vest", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
		},
	}
}

func (s *LedgerSuite) TestFormatAndParseNumber() {
	s.Equal("INV-202503-0007", FormatNumber(InvoicePrefix, s.Now, 7))
	n, ok := ParseSequence("ORD-202503-0042")
	s.True(ok)
	s.Equal(42, n)
	_, ok = ParseSequence("ORD-TEST-")
	s.False(ok)
}

func (s *LedgerSuite) TestInvoiceNumbersIncreaseWithinMonth() {
	var numbers []string
	for i := 0; i < 3; i++ {
		inv := s.newInvoice("10.00", types.INVOICE_PENDING)
		s.Require().NoError(s.Invoices.Create(s.ctx, inv))
		numbers = append(numbers, inv.InvoiceNumber)
	}
	s.Equal([]string{"INV-202503-0001", "INV-202503-0002", "INV-202503-0003"}, numbers)

	s.Now = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	inv := s.newInvoice("10.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, inv))
	s.Equal("INV-202504-0001", inv.InvoiceNumber)
}

func (s *LedgerSuite) TestInvoiceNumbersIgnoreMerchantReferences() {
	ref := s.newInvoice("100.00", types.INVOICE_PAID)
	ref.InvoiceNumber = "ORD-TEST-0001"
	s.Require().NoError(s.Invoices.Create(s.ctx, ref))

	inv := s.newInvoice("10.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, inv))
	s.Equal("INV-202503-0001", inv.InvoiceNumber)
}

func (s *LedgerSuite) TestNumberCollisionIsRetried() {
	first := s.newInvoice("10.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, first))

	calls := 0
	real := s.Invoices.number
	s.Invoices.number = func(tx *gorm.DB, prefix string, at time.Time) (string, error) {
		calls++
		if calls == 1 {
			return first.InvoiceNumber, nil
		}
		return real(tx, prefix, at)
	}

	second := s.newInvoice("20.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, second))
	s.Equal(2, calls)
	s.Equal("INV-202503-0002", second.InvoiceNumber)

	var count int64
	s.DB.Model(&models.Invoice{}).Count(&count)
	s.Equal(int64(2), count)
}

func (s *LedgerSuite) TestNumberCollisionExhaustsRetries() {
	first := s.newInvoice("10.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, first))

	calls := 0
	s.Invoices.number = func(tx *gorm.DB, prefix string, at time.Time) (string, error) {
		calls++
		return first.InvoiceNumber, nil
	}
	err := s.Invoices.Create(s.ctx, s.newInvoice("20.00", types.INVOICE_PENDING))
	s.True(types.IsConflict(err))
	s.Equal(maxNumberAttempts, calls)
}

func (s *LedgerSuite) TestSuppliedNumberConflicts() {
	a := s.newInvoice("100.00", types.INVOICE_PAID)
	a.InvoiceNumber = "ORD-TEST-0001"
	s.Require().NoError(s.Invoices.Create(s.ctx, a))

	b := s.newInvoice("100.00", types.INVOICE_PAID)
	b.InvoiceNumber = "ORD-TEST-0001"
	err := s.Invoices.Create(s.ctx, b)
	s.True(types.IsConflict(err))
	s.Equal("ORD-TEST-0001", b.InvoiceNumber)

	exists, err := s.Invoices.Exists(s.ctx, "ORD-TEST-0001")
	s.NoError(err)
	s.True(exists)
}

func (s *LedgerSuite) TestCreateRejectsInvalidInvoice() {
	inv := s.newInvoice("-1.00", types.InvoiceStatus("settled"))
	err := s.Invoices.Create(s.ctx, inv)
	var verr *types.ValidationError
	s.ErrorAs(err, &verr)
	s.Contains(verr.Fields, "amount")
	s.Contains(verr.Fields, "status")
}

func (s *LedgerSuite) TestUpdateStatusIsIdempotent() {
	inv := s.newInvoice("10.00", types.INVOICE_PENDING)
	s.Require().NoError(s.Invoices.Create(s.ctx, inv))

	for i := 0; i < 2; i++ {
		updated, err := s.Invoices.UpdateStatus(s.ctx, inv.ID, types.INVOICE_PAID)
		s.Require().NoError(err)
		s.Equal(types.INVOICE_PAID, updated.Status)
	}
	_, err := s.Invoices.UpdateStatus(s.ctx, 999, types.INVOICE_PAID)
	s.True(types.IsNotFound(err))
	_, err = s.Invoices.UpdateStatus(s.ctx, inv.ID, types.InvoiceStatus("void"))
	var verr *types.ValidationError
	s.ErrorAs(err, &verr)
}

func (s *LedgerSuite) TestMarkOverdue() {
	late := s.newInvoice("10.00", types.INVOICE_PENDING)
	late.DueDate = s.Now.Add(-time.Hour)
	paidLate := s.newInvoice("10.00", types.INVOICE_PAID)
	paidLate.DueDate = s.Now.Add(-time.Hour)
	future := s.newInvoice("10.00", types.INVOICE_PENDING)
	for _, inv := range []*models.Invoice{late, paidLate, future} {
		s.Require().NoError(s.Invoices.Create(s.ctx, inv))
	}

	n, err := s.Invoices.MarkOverdue(s.ctx, s.Now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.Invoices.MarkOverdue(s.ctx, s.Now)
	s.Require().NoError(err)
	s.Equal(int64(0), n)

	got, err := s.Invoices.FindByID(s.ctx, late.ID)
	s.Require().NoError(err)
	s.Equal(types.INVOICE_OVERDUE, got.Status)
	got, _ = s.Invoices.FindByID(s.ctx, paidLate.ID)
	s.Equal(types.INVOICE_PAID, got.Status)
	got, _ = s.Invoices.FindByID(s.ctx, future.ID)
	s.Equal(types.INVOICE_PENDING, got.Status)
}

func (s *LedgerSuite) TestUpdateStatusGuardsOverdue() {
	paid := s.newInvoice("10.00", types.INVOICE_PAID)
	paid.DueDate = s.Now.Add(30 * 24 * time.Hour)
	notDue := s.newInvoice("10.00", types.INVOICE_PENDING)
	paidLate := s.newInvoice("10.00", types.INVOICE_PAID)
	paidLate.DueDate = s.Now.Add(-time.Hour)
	late := s.newInvoice("10.00", types.INVOICE_PENDING)
	late.DueDate = s.Now.Add(-time.Hour)
	for _, inv := range []*models.Invoice{paid, notDue, paidLate, late} {
		s.Require().NoError(s.Invoices.Create(s.ctx, inv))
	}

	for _, inv := range []*models.Invoice{paid, notDue, paidLate} {
		_, err := s.Invoices.UpdateStatus(s.ctx, inv.ID, types.INVOICE_OVERDUE)
		var verr *types.ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Contains(verr.Fields, "status")
		got, _ := s.Invoices.FindByID(s.ctx, inv.ID)
		s.Equal(inv.Status, got.Status)
	}

	got, err := s.Invoices.UpdateStatus(s.ctx, late.ID, types.INVOICE_OVERDUE)
	s.Require().NoError(err)
	s.Equal(types.INVOICE_OVERDUE, got.Status)
}

func (s *LedgerSuite) TestInvoiceListAndStats() {
	paid := s.newInvoice("100.00", types.INVOICE_PAID)
	pending := s.newInvoice("40.00", types.INVOICE_PENDING)
	late := s.newInvoice("5.00", types.INVOICE_PENDING)
	late.DueDate = s.Now.Add(-24 * time.Hour)
	cancelled := s.newInvoice("7.00", types.INVOICE_CANCELLED)
	for _, inv := range []*models.Invoice{paid, pending, late, cancelled} {
		s.Require().NoError(s.Invoices.Create(s.ctx, inv))
	}

	page, err := s.Invoices.List(s.ctx, InvoiceFilter{Status: "pending"})
	s.Require().NoError(err)
	s.Equal(int64(2), page.Total)
	s.Len(page.Data, 2)

	page, err = s.Invoices.List(s.ctx, InvoiceFilter{Search: paid.InvoiceNumber})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(paid.ID, page.Data[0].ID)

	stats, err := s.Invoices.Stats(s.ctx, s.Now)
	s.Require().NoError(err)
	s.Equal(int64(4), stats.Total)
	s.Equal(int64(1), stats.Paid)
	s.Equal(int64(2), stats.Pending)
	s.Equal(int64(1), stats.Cancelled)
	s.Equal(int64(1), stats.Overdue)
	s.True(decimal.RequireFromString("100").Equal(stats.TotalAmount))
	s.True(decimal.RequireFromString("45").Equal(stats.PendingAmount))
}

func (s *LedgerSuite) TestPlaceOrderWithInvoice() {
	order := s.newOrder(types.ORDER_PAID)
	inv := s.newInvoice("250.00", types.INVOICE_PAID)
	s.Require().NoError(s.Orders.Place(s.ctx, order, inv))

	s.Equal("ORD-202503-0001", order.OrderNumber)
	s.Equal("INV-202503-0001", inv.InvoiceNumber)
	s.Require().NotNil(order.InvoiceID)
	s.Equal(inv.ID, *order.InvoiceID)

	got, err := s.Orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Invoice)
	s.Equal(types.INVOICE_PAID, got.Invoice.Status)
	s.Require().Len(got.Items, 2)
	s.True(decimal.RequireFromString("200").Equal(got.Items[0].TotalPrice))
	s.True(decimal.RequireFromString("50").Equal(got.Items[1].TotalPrice))
}

func (s *LedgerSuite) TestPlaceOrderRejectsUnknownUser() {
	order := s.newOrder(types.ORDER_PENDING)
	uid := uint(42)
	order.UserID = &uid
	err := s.Orders.Place(s.ctx, order, s.newInvoice("250.00", types.INVOICE_PENDING))
	var verr *types.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "user_id")

	var count int64
	s.DB.Model(&models.Invoice{}).Count(&count)
	s.Equal(int64(0), count)
}

func (s *LedgerSuite) TestOrderStatusCascade() {
	order := s.newOrder(types.ORDER_PENDING)
	s.Require().NoError(s.Orders.Place(s.ctx, order, s.newInvoice("250.00", types.INVOICE_PENDING)))

	transitions := []types.OrderStatus{
		types.ORDER_PROCESSING,
		types.ORDER_PAID,
		types.ORDER_REFUNDED,
		types.ORDER_PENDING,
		types.ORDER_CANCELLED,
		types.ORDER_PAID,
		types.ORDER_PAID,
	}
	for _, status := range transitions {
		updated, err := s.Orders.UpdateStatus(s.ctx, order.ID, status)
		s.Require().NoError(err)
		s.Equal(status, updated.Status)
		s.Require().NotNil(updated.Invoice)
		s.Equalf(status.InvoiceStatus(), updated.Invoice.Status, "after order moved to %s", status)

		stored, err := s.Invoices.FindByID(s.ctx, *order.InvoiceID)
		s.Require().NoError(err)
		s.Equal(status.InvoiceStatus(), stored.Status)
	}
}

func (s *LedgerSuite) TestOrderWithoutInvoiceUpdatesAlone() {
	order := s.newOrder(types.ORDER_PENDING)
	s.Require().NoError(s.Orders.Create(s.ctx, order))
	updated, err := s.Orders.UpdateStatus(s.ctx, order.ID, types.ORDER_CANCELLED)
	s.Require().NoError(err)
	s.Nil(updated.Invoice)

	_, err = s.Orders.UpdateStatus(s.ctx, 12345, types.ORDER_PAID)
	s.True(types.IsNotFound(err))
}

func (s *LedgerSuite) TestDeleteOrderKeepsInvoiceAndNumber() {
	first := s.newOrder(types.ORDER_PENDING)
	s.Require().NoError(s.Orders.Place(s.ctx, first, s.newInvoice("250.00", types.INVOICE_PENDING)))
	second := s.newOrder(types.ORDER_PENDING)
	s.Require().NoError(s.Orders.Create(s.ctx, second))

	s.Require().NoError(s.Orders.Delete(s.ctx, second.ID))
	s.Require().NoError(s.Orders.Delete(s.ctx, first.ID))
	s.True(types.IsNotFound(s.Orders.Delete(s.ctx, first.ID)))

	var raw int64
	s.DB.Unscoped().Model(&models.Order{}).Count(&raw)
	s.Equal(int64(0), raw)

	_, err := s.Invoices.FindByID(s.ctx, *first.InvoiceID)
	s.NoError(err)

	third := s.newOrder(types.ORDER_PENDING)
	s.Require().NoError(s.Orders.Create(s.ctx, third))
	s.Equal("ORD-202503-0003", third.OrderNumber)
}

func (s *LedgerSuite) TestOrderListFilters() {
	a := s.newOrder(types.ORDER_PAID)
	b := s.newOrder(types.ORDER_PENDING)
	b.CustomerName = "Faisal Qahtani"
	b.Currency = "USD"
	for _, o := range []*models.Order{a, b} {
		s.Require().NoError(s.Orders.Create(s.ctx, o))
	}

	page, err := s.Orders.List(s.ctx, OrderFilter{Search: "Faisal"})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(b.ID, page.Data[0].ID)

	page, err = s.Orders.List(s.ctx, OrderFilter{Currency: "SAR", Status: "paid"})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal(a.ID, page.Data[0].ID)

	page, err = s.Orders.List(s.ctx, OrderFilter{})
	s.Require().NoError(err)
	s.Equal(int64(2), page.Total)
	s.Equal(1, page.LastPage)
}

func (s *LedgerSuite) TestQuotationItemTotals() {
	q := &models.Quotation{
		CustomerName: "Adventure Club",
		Items: []models.QuotationItem{
			{ProductName: "Quad bike", Quantity: 3, UnitPrice: decimal.RequireFromString("80.00"), TotalPrice: decimal.RequireFromString("1.00")},
			{ProductName: "Helmet", Quantity: 3, UnitPrice: decimal.RequireFromString("5.50")},
		},
	}
	s.Require().NoError(s.Quotations.Create(s.ctx, q))
	s.Equal("QUO-202503-0001", q.QuotationNumber)
	s.True(decimal.RequireFromString("256.5").Equal(q.Total))

	got, err := s.Quotations.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Items, 2)
	s.True(decimal.RequireFromString("240").Equal(got.Items[0].TotalPrice))

	qty := 5
	got, err = s.Quotations.UpdateItem(s.ctx, q.ID, got.Items[0].ID, QuotationItemPatch{Quantity: &qty})
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("400").Equal(got.Items[0].TotalPrice))
	s.True(decimal.RequireFromString("416.5").Equal(got.Total))

	price := decimal.RequireFromString("6.00")
	got, err = s.Quotations.UpdateItem(s.ctx, q.ID, got.Items[1].ID, QuotationItemPatch{UnitPrice: &price})
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("18").Equal(got.Items[1].TotalPrice))
	s.True(decimal.RequireFromString("418").Equal(got.Total))

	_, err = s.Quotations.UpdateItem(s.ctx, q.ID, 999, QuotationItemPatch{Quantity: &qty})
	s.True(types.IsNotFound(err))

	got, err = s.Quotations.UpdateStatus(s.ctx, q.ID, types.QUOTATION_SENT)
	s.Require().NoError(err)
	s.Equal(types.QUOTATION_SENT, got.Status)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

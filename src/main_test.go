package main

import (
	"aworld/src/config"
	"aworld/src/db"
	"aworld/src/lib"
	"aworld/src/models"
	"aworld/src/payments"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB      *gorm.DB
	Noon    *httptest.Server
	Service *payments.Service
	router  *gin.Engine
}

// noonStub answers order initiation like the gateway sandbox. References
// starting with FAIL are rejected.
func noonStub() *httptest.Server {
	var seq int
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ref := gjson.GetBytes(b, "order.reference").String()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(ref, "FAIL") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"resultCode":19019,"message":"Invalid order amount"}`))
			return
		}
		seq++
		fmt.Fprintf(w, `{"resultCode":0,"result":{"order":{"id":%d,"status":"INITIATED"},"checkoutData":{"postUrl":"https://checkout.test/%s"},"nextActions":"CHECK_OUT"}}`, 880000+seq, ref)
	}))
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()
	s.Noon = noonStub()
}

func (s *TestSuite) TearDownSuite() {
	s.Noon.Close()
}

func (s *TestSuite) SetupTest() {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(s.T().Name())
	d, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(d))
	s.Require().NoError(d.Create(&models.User{Name: "Front Desk", Email: "desk@aworld.test"}).Error)
	db.NewDB(d)
	s.DB = d

	noonCfg := config.NoonConfig{
		BaseURL:    s.Noon.URL + "/payment/v1/",
		APIKey:     "key",
		BusinessID: "aworld",
		AppID:      "web",
		ReturnURL:  "https://shop.aworld.test",
		Timeout:    5 * time.Second,
	}
	s.Service = payments.SetService(payments.NewService(payments.Deps{
		DB:        d,
		Gateway:   lib.NoonClientFromConfig(noonCfg, s.Noon.Client()),
		Publisher: lib.LogPublisher{},
		Options:   payments.Options{SessionTTL: time.Hour, RequireUser: true, ReturnURL: noonCfg.ReturnURL},
	}))

	s.router = setupRouter()
	registerRoutes(s.router)
}

func (s *TestSuite) TearDownTest() {
	if inner, err := s.DB.DB(); err == nil {
		inner.Close()
	}
}

func (s *TestSuite) do(method, url, body string) (*httptest.ResponseRecorder, string) {
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	s.router.ServeHTTP(w, req)
	return w, w.Body.String()
}

func paymentBody(orderID, currency string) string {
	return fmt.Sprintf(`{"user_id":1,"amount":100,"currency":%q,"order_id":%q,"customer_email":"guest@example.com","customer_name":"Guest"}`, currency, orderID)
}

func (s *TestSuite) TestHealthCheck() {
	w, _ := s.do(http.MethodGet, "/", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("nosniff", w.Header().Get("X-Content-Type-Options"))
}

func (s *TestSuite) TestPaymentLifecycle() {
	w, body := s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("ORD-TEST-0001", "SAR"))
	s.Require().Equal(http.StatusCreated, w.Code, body)
	s.True(gjson.Get(body, "success").Bool())
	s.Equal("Payment session created successfully", gjson.Get(body, "message").String())
	s.Equal("ORD-TEST-0001", gjson.Get(body, "data.order_id").String())
	s.NotEmpty(gjson.Get(body, "data.noon_order_id").String())
	s.Equal("https://checkout.test/ORD-TEST-0001", gjson.Get(body, "data.checkout_url").String())

	w, body = s.do(http.MethodGet, "/api/v1/payment/status?order_id=ORD-TEST-0001", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("pending", gjson.Get(body, "data.status").String())

	w, body = s.do(http.MethodPost, "/api/v1/payment/webhook", `{"order":{"reference":"ORD-TEST-0001","status":"AUTHORIZED","id":880001}}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("created_paid", gjson.Get(body, "outcome").String())

	w, body = s.do(http.MethodGet, "/api/v1/payment/status?order_id=ORD-TEST-0001", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("paid", gjson.Get(body, "data.status").String())
	s.Equal(float64(100), gjson.Get(body, "data.amount").Float())

	w, body = s.do(http.MethodGet, "/api/v1/payment/success?order_id=ORD-TEST-0001&payment_id=880001", "")
	s.Equal(http.StatusOK, w.Code)
	s.True(gjson.Get(body, "success").Bool())
	s.False(gjson.Get(body, "data.invoice").Exists())
}

func (s *TestSuite) TestCreatePaymentValidation() {
	w, body := s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("ORD-V", "EUR"))
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("paymentcurrency", gjson.Get(body, "errors.currency").String())

	w, body = s.do(http.MethodPost, "/api/v1/payment/create", `{"currency":"SAR"}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.True(gjson.Get(body, "errors.amount").Exists())
	s.True(gjson.Get(body, "errors.order_id").Exists())
	s.True(gjson.Get(body, "errors.customer_email").Exists())

	w, _ = s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("ORD-V2", "SAR"))
	s.Require().Equal(http.StatusCreated, w.Code)
	w, _ = s.do(http.MethodGet, "/api/v1/payment/success?order_id=ORD-V2", "")
	s.Require().Equal(http.StatusOK, w.Code)
	w, body = s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("ORD-V2", "SAR"))
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.True(gjson.Get(body, "errors.order_id").Exists())
}

func (s *TestSuite) TestCreatePaymentGatewayError() {
	w, body := s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("FAIL-1", "SAR"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.False(gjson.Get(body, "success").Bool())
	s.Equal("Failed to create payment session", gjson.Get(body, "message").String())
	s.Equal("Invalid order amount", gjson.Get(body, "error.message").String())

	w, _ = s.do(http.MethodGet, "/api/v1/payment/status?order_id=FAIL-1", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TestSuite) TestCreatePaymentUnconfigured() {
	payments.SetService(payments.NewService(payments.Deps{
		DB:      s.DB,
		Gateway: lib.NoonClientFromConfig(config.NoonConfig{BaseURL: s.Noon.URL}, nil),
		Options: payments.Options{RequireUser: true},
	}))
	defer payments.SetService(s.Service)

	w, body := s.do(http.MethodPost, "/api/v1/payment/create", paymentBody("ORD-NC", "SAR"))
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Noon API configuration incomplete", gjson.Get(body, "message").String())
}

func (s *TestSuite) TestPaymentStatusNotFound() {
	w, body := s.do(http.MethodGet, "/api/v1/payment/status?order_id=NOPE", "")
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Invoice not found", gjson.Get(body, "message").String())

	w, _ = s.do(http.MethodGet, "/api/v1/payment/status", "")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *TestSuite) TestPaymentCancelWithoutRecords() {
	w, body := s.do(http.MethodGet, "/api/v1/payment/cancel?order_id=ORD-NONE", "")
	s.Equal(http.StatusOK, w.Code)
	s.False(gjson.Get(body, "success").Bool())
	s.Equal("Payment was cancelled", gjson.Get(body, "message").String())

	var n int64
	s.DB.Model(&models.Invoice{}).Count(&n)
	s.Equal(int64(0), n)
}

func (s *TestSuite) TestWebhookAcknowledgesUnknownPayloads() {
	w, body := s.do(http.MethodPost, "/api/v1/payment/webhook", `{"hello":"world"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("rejected", gjson.Get(body, "outcome").String())

	w, body = s.do(http.MethodPost, "/api/v1/payment/webhook", `{"order":{"reference":"ORD-GHOST","status":"CAPTURED"}}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ignored_no_session", gjson.Get(body, "outcome").String())
}

func (s *TestSuite) TestWebhookInvalidSignature() {
	payments.SetService(payments.NewService(payments.Deps{
		DB:       s.DB,
		Verifier: payments.HMACVerifier{Secret: []byte("secret")},
	}))
	defer payments.SetService(s.Service)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/payment/webhook", strings.NewReader(`{"order":{"reference":"X","status":"CAPTURED"}}`))
	req.Header.Set(payments.SignatureHeader, "bogus")
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Invalid signature", gjson.Get(w.Body.String(), "error").String())
}

func (s *TestSuite) TestOrderLifecycle() {
	order := `{"customer_name":"Sara","currency":"SAR","payment_method":"credit_card","status":"paid","total_amount":150,
		"items":[{"name":"Zipline","quantity":2,"price":75}]}`
	w, body := s.do(http.MethodPost, "/api/v1/orders", order)
	s.Require().Equal(http.StatusCreated, w.Code, body)
	s.Regexp(`^ORD-\d{6}-\d{4}$`, gjson.Get(body, "data.order_number").String())
	s.Regexp(`^INV-\d{6}-\d{4}$`, gjson.Get(body, "data.invoice.invoice_number").String())
	s.Equal("paid", gjson.Get(body, "data.invoice.status").String())
	s.Equal(float64(150), gjson.Get(body, "data.items.0.total_price").Float())
	id := gjson.Get(body, "data.id").Int()

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/orders/%d/status", id), `{"status":"refunded"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("refunded", gjson.Get(body, "data.status").String())
	s.Equal("cancelled", gjson.Get(body, "data.invoice.status").String())

	w, body = s.do(http.MethodGet, "/api/v1/orders?status=refunded", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), gjson.Get(body, "data.total").Int())
	s.Equal(int64(15), gjson.Get(body, "data.per_page").Int())

	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", id), "")
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", id), "")
	s.Equal(http.StatusNotFound, w.Code)

	w, body = s.do(http.MethodGet, "/api/v1/invoices", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), gjson.Get(body, "data.total").Int())
}

func (s *TestSuite) TestOrderValidation() {
	w, body := s.do(http.MethodPost, "/api/v1/orders", `{"customer_name":"Sara","currency":"GBP","payment_method":"barter","status":"shipped","items":[]}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("ordercurrency", gjson.Get(body, "errors.currency").String())
	s.Equal("paymentmethod", gjson.Get(body, "errors.payment_method").String())
	s.Equal("orderstatus", gjson.Get(body, "errors.status").String())
	s.True(gjson.Get(body, "errors.items").Exists())
	s.Equal("required", gjson.Get(body, "errors.total_amount").String())

	w, body = s.do(http.MethodPost, "/api/v1/orders", `{"customer_name":"Sara","currency":"SAR","payment_method":"cash","status":"pending",
		"items":[{"name":"Zipline","quantity":1}]}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("required", gjson.Get(body, "errors.total_amount").String())
	s.Equal("required", gjson.Get(body, "errors.price").String())

	w, _ = s.do(http.MethodPatch, "/api/v1/orders/999/status", `{"status":"paid"}`)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TestSuite) TestInvoiceEndpoints() {
	order := `{"customer_name":"Ali","currency":"USD","payment_method":"cash","status":"pending","total_amount":40,
		"items":[{"name":"Map","quantity":1,"price":40}]}`
	w, body := s.do(http.MethodPost, "/api/v1/orders", order)
	s.Require().Equal(http.StatusCreated, w.Code, body)
	invoiceID := gjson.Get(body, "data.invoice.id").Int()

	w, body = s.do(http.MethodGet, "/api/v1/invoices/stats", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), gjson.Get(body, "data.pending").Int())
	s.Equal(float64(40), gjson.Get(body, "data.pending_amount").Float())

	w, body = s.do(http.MethodPatch, "/api/v1/invoices/update-overdue", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(0), gjson.Get(body, "data.updated").Int())

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/invoices/%d/status", invoiceID), `{"status":"overdue"}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.True(gjson.Get(body, "errors.status").Exists())

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/invoices/%d/status", invoiceID), `{"status":"archived"}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("invoicestatus", gjson.Get(body, "errors.status").String())

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/invoices/%d/status", invoiceID), `{"status":"paid"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("paid", gjson.Get(body, "data.status").String())

	w, body = s.do(http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d", invoiceID), "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("paid", gjson.Get(body, "data.status").String())
}

func (s *TestSuite) TestQuotationEndpoints() {
	w, body := s.do(http.MethodPost, "/api/v1/quotations", `{"customer_name":"Hotel Partner","items":[
		{"product_name":"Desert safari","quantity":3,"unit_price":85.5},
		{"product_name":"Dune buggy","quantity":1,"unit_price":160}]}`)
	s.Require().Equal(http.StatusCreated, w.Code, body)
	s.Regexp(`^QUO-\d{6}-\d{4}$`, gjson.Get(body, "data.quotation_number").String())
	s.Equal(float64(416.5), gjson.Get(body, "data.total").Float())
	id := gjson.Get(body, "data.id").Int()
	itemID := gjson.Get(body, "data.items.0.id").Int()

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/quotations/%d/items/%d", id, itemID), `{"quantity":4}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(float64(342), gjson.Get(body, "data.items.0.total_price").Float())
	s.Equal(float64(502), gjson.Get(body, "data.total").Float())

	w, body = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/quotations/%d/status", id), `{"status":"sent"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("sent", gjson.Get(body, "data.status").String())

	w, _ = s.do(http.MethodGet, "/api/v1/quotations/999", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

func TestMaintenanceMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("MAINTENANCE_MODE", "true")
	router := maintenanceModeMiddleware(gin.New())
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

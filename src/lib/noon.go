package lib

import (
	"aworld/src/config"
	"aworld/src/types"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

type NoonOrderRequest struct {
	Amount    decimal.Decimal
	Currency  string
	Reference string
	Name      string
	ReturnURL string
}

type NoonOrderResult struct {
	OrderID        string
	Status         string
	CheckoutURL    string
	NextActions    json.RawMessage
	PaymentOptions json.RawMessage
}

// NoonClient calls the Noon payments order API.
type NoonClient struct {
	cfg  config.NoonConfig
	http *http.Client
}

var noonClient *NoonClient

func GetNoonClient() *NoonClient {
	if noonClient != nil {
		return noonClient
	}
	noonClient = NoonClientFromConfig(config.GetNoonConfig(), nil)
	return noonClient
}

// NewNoonClient Replace the gateway client, mainly for tests
func NewNoonClient(c *NoonClient) *NoonClient {
	noonClient = c
	return noonClient
}

func NoonClientFromConfig(cfg config.NoonConfig, hc *http.Client) *NoonClient {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &NoonClient{cfg: cfg, http: hc}
}

func (c *NoonClient) Configured() bool {
	return c.cfg.Complete()
}

// AuthorizationHeader builds "Key base64(businessId.appId:apiKey)".
func (c *NoonClient) AuthorizationHeader() string {
	raw := fmt.Sprintf("%s.%s:%s", c.cfg.BusinessID, c.cfg.AppID, c.cfg.APIKey)
	return "Key " + base64.StdEncoding.EncodeToString([]byte(raw))
}

func (c *NoonClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *NoonClient) InitiateOrder(ctx context.Context, req NoonOrderRequest) (*NoonOrderResult, error) {
	if !c.cfg.Complete() {
		return nil, types.ErrGatewayNotConfigured
	}
	name := req.Name
	if name == "" {
		name = config.DEFAULT_ORDER_DESCRIPTION
	}
	payload := map[string]any{
		"apiOperation": "INITIATE",
		"order": map[string]any{
			"amount":    json.Number(req.Amount.StringFixed(2)),
			"currency":  req.Currency,
			"reference": req.Reference,
			"name":      name,
			"category":  "pay",
		},
	}
	if req.ReturnURL != "" {
		payload["configuration"] = map[string]any{"returnUrl": req.ReturnURL}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := c.endpoint("order")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", c.AuthorizationHeader())
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)

	log.Printf("[Noon] POST %s reference=%s body=%s\n", url, req.Reference, string(body))
	res, err := c.http.Do(httpReq)
	if err != nil {
		log.Printf("[Noon] Error calling gateway for %s: %s\n", req.Reference, err.Error())
		return nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Printf("[Noon] Gateway error status=%d reference=%s request=%s response=%s\n", res.StatusCode, req.Reference, string(body), string(resBody))
		return nil, &types.GatewayError{StatusCode: res.StatusCode, Body: string(resBody)}
	}

	parsed := gjson.ParseBytes(resBody)
	result := &NoonOrderResult{
		OrderID:     parsed.Get("result.order.id").String(),
		Status:      parsed.Get("result.order.status").String(),
		CheckoutURL: parsed.Get("result.checkoutData.postUrl").String(),
	}
	if v := parsed.Get("result.nextActions"); v.Exists() {
		result.NextActions = json.RawMessage(v.Raw)
	}
	if v := parsed.Get("result.paymentOptions"); v.Exists() {
		result.PaymentOptions = json.RawMessage(v.Raw)
	}
	if result.OrderID == "" {
		log.Printf("[Noon] Response for %s carries no order id: %s\n", req.Reference, string(resBody))
		return nil, &types.GatewayError{StatusCode: http.StatusBadGateway, Body: string(resBody)}
	}
	log.Printf("[Noon] Initiated order %s for %s status=%s\n", result.OrderID, req.Reference, result.Status)
	return result, nil
}

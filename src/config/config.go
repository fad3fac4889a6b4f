package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// const dsn = "host=localhost user=postgres password=password dbname=aworld port=5432 sslmode=disable TimeZone=Asia/Riyadh"

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const (
	DEFAULT_NOON_API_URL      = "https://api-test.sa.noonpayments.com/payment/v1/"
	DEFAULT_EVENTS_QUEUE      = "PaymentTransactionUpdates"
	DEFAULT_PORT              = "9090"
	DEFAULT_SESSION_TTL       = time.Hour
	DEFAULT_SWEEP_INTERVAL    = time.Hour
	DEFAULT_GATEWAY_TIMEOUT   = 30 * time.Second
	PAYMENT_INVOICE_DUE_IN    = 7 * 24 * time.Hour
	ORDER_INVOICE_DUE_IN      = 30 * 24 * time.Hour
	DEFAULT_ORDER_DESCRIPTION = "Order from Adventure World"
)

// NoonConfig holds the gateway credentials and endpoints.
type NoonConfig struct {
	BaseURL        string
	APIKey         string
	APIKeySecretID string
	BusinessID     string
	AppID          string
	ReturnURL      string
	WebhookSecret  string
	VerifyWebhooks bool
	Timeout        time.Duration
}

// Complete reports whether every credential needed to call the gateway is present.
func (c NoonConfig) Complete() bool {
	return c.APIKey != "" && c.BusinessID != "" && c.AppID != ""
}

type PaymentsConfig struct {
	SessionTTL     time.Duration
	RequireUser    bool
	FallbackUserID *uint
	EventsQueue    string
	SweepInterval  time.Duration
}

func GetNoonConfig() NoonConfig {
	return NoonConfig{
		BaseURL:        EnvOr("NOON_API_URL", DEFAULT_NOON_API_URL),
		APIKey:         os.Getenv("NOON_API_KEY"),
		APIKeySecretID: os.Getenv("NOON_API_KEY_SECRET_ID"),
		BusinessID:     os.Getenv("NOON_BUSINESS_ID"),
		AppID:          os.Getenv("NOON_APP_ID"),
		ReturnURL:      strings.TrimRight(EnvOr("NOON_RETURN_URL", os.Getenv("APP_URL")), "/"),
		WebhookSecret:  os.Getenv("NOON_WEBHOOK_SECRET"),
		VerifyWebhooks: EnvBool("NOON_WEBHOOK_VERIFY", false),
		Timeout:        EnvDuration("NOON_HTTP_TIMEOUT", DEFAULT_GATEWAY_TIMEOUT),
	}
}

func GetPaymentsConfig() PaymentsConfig {
	cfg := PaymentsConfig{
		SessionTTL:    EnvDuration("PAYMENT_SESSION_TTL", DEFAULT_SESSION_TTL),
		RequireUser:   EnvBool("PAYMENTS_REQUIRE_USER", true),
		EventsQueue:   EnvOr("EVENTS_QUEUE", DEFAULT_EVENTS_QUEUE),
		SweepInterval: EnvDuration("OVERDUE_SWEEP_INTERVAL", DEFAULT_SWEEP_INTERVAL),
	}
	if v := os.Getenv("ORDERS_FALLBACK_USER_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Printf("[config] Ignoring invalid ORDERS_FALLBACK_USER_ID %q: %s\n", v, err.Error())
		} else {
			uid := uint(id)
			cfg.FallbackUserID = &uid
		}
	}
	return cfg
}

// Environment returns API_ENV, defaulting to local.
func Environment() string {
	return EnvOr("API_ENV", "local")
}

func Port() string {
	return EnvOr("PORT", DEFAULT_PORT)
}

func EnvOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] Invalid boolean for %s: %q\n", key, v)
		return fallback
	}
	return b
}

// EnvDuration accepts Go duration strings ("90m") or a plain number of seconds.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("[config] Invalid duration for %s: %q\n", key, v)
	return fallback
}

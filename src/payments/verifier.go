package payments

import (
	"aworld/src/config"
	"aworld/src/types"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log"
	"strings"
)

const SignatureHeader = "X-Noon-Signature"

// Verifier checks that a webhook payload was sent by the gateway.
type Verifier interface {
	Verify(payload []byte, signature string) error
}

// NoopVerifier accepts every payload.
// SECURITY: webhooks are unauthenticated while this verifier is in use.
type NoopVerifier struct{}

func (NoopVerifier) Verify(_ []byte, _ string) error {
	log.Println("[Webhook] WARNING: signature verification is disabled, payload accepted unverified")
	return nil
}

// HMACVerifier expects the signature to be the HMAC-SHA256 of the raw payload
// under a shared secret, hex or base64 encoded.
type HMACVerifier struct {
	Secret []byte
}

func (v HMACVerifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(strings.TrimPrefix(signature, "sha256="))
	if signature == "" || len(v.Secret) == 0 {
		return types.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if got, err := hex.DecodeString(signature); err == nil && hmac.Equal(got, expected) {
		return nil
	}
	if got, err := base64.StdEncoding.DecodeString(signature); err == nil && hmac.Equal(got, expected) {
		return nil
	}
	return types.ErrInvalidSignature
}

func NewVerifier(cfg config.NoonConfig) Verifier {
	if !cfg.VerifyWebhooks {
		return NoopVerifier{}
	}
	if cfg.WebhookSecret == "" {
		log.Println("[Webhook] NOON_WEBHOOK_VERIFY is set without NOON_WEBHOOK_SECRET, every webhook will be rejected")
	}
	return HMACVerifier{Secret: []byte(cfg.WebhookSecret)}
}

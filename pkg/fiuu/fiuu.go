// Package fiuu implements the Fiuu (Razer Merchant Services) hosted payment
// page protocol: outbound request signing, inbound callback verification and
// refund signatures. The md5-based digests are the gateway's wire contract.
package fiuu

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/visolux/store-backend/pkg/enums"
	"github.com/visolux/store-backend/pkg/money"
)

// Config carries the merchant credentials and gateway endpoints.
type Config struct {
	MerchantID string
	VerifyKey  string
	SecretKey  string
	GatewayURL string
	Currency   string

	// PaymentMethod optionally pins the hosted page to one channel. Empty
	// lets the gateway show every available channel.
	PaymentMethod string

	// LegacyVcode omits the currency from the request signature. Older
	// merchant accounts still expect the short digest.
	LegacyVcode bool

	// RequestMethod is GET or POST; GET produces a ready FullURL.
	RequestMethod string

	ReturnURL   string
	CallbackURL string
	CancelURL   string
}

func (c Config) validate() error {
	if c.MerchantID == "" || c.VerifyKey == "" || c.SecretKey == "" || c.GatewayURL == "" {
		return fmt.Errorf("fiuu: merchant id, verify key, secret key and gateway url are required")
	}
	return nil
}

func (c Config) currency() string {
	if c.Currency == "" {
		return "MYR"
	}
	return c.Currency
}

func md5Hex(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// FormatAmount renders cents as the gateway's two-decimal amount text.
func FormatAmount(cents int) string {
	return money.Format(cents)
}

// Vcode computes the outbound request signature over the formatted amount,
// merchant id, order reference and verify key. Extended mode appends the
// currency.
func Vcode(amountStr, merchantID, orderRef, verifyKey, currency string, legacy bool) string {
	if legacy {
		return md5Hex(amountStr + merchantID + orderRef + verifyKey)
	}
	return md5Hex(amountStr + merchantID + orderRef + verifyKey + currency)
}

// StatusToEventType maps the gateway status code to a ledger event type.
// 00 is success and 22 is pending; every other code is a failure.
func StatusToEventType(statusCode string) enums.PaymentEventType {
	switch strings.TrimSpace(statusCode) {
	case "00":
		return enums.PaymentEventTypePaid
	case "22":
		return enums.PaymentEventTypePending
	default:
		return enums.PaymentEventTypeFailed
	}
}

// SanitizeMobile keeps digits and a leading plus. The gateway rejects
// formatted phone numbers.
func SanitizeMobile(phone string) string {
	raw := strings.TrimSpace(phone)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	if raw[0] == '+' {
		b.WriteByte('+')
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// digestsEqual compares two hex digests in constant time, case-insensitive.
func digestsEqual(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if len(la) != len(lb) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(la), []byte(lb)) == 1
}

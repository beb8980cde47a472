package fiuu

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// getField returns the first non-empty value among the candidate names,
// falling back to a case-insensitive scan. Gateways have shipped both
// tranID and txnId casings over the years.
func getField(payload map[string]string, names ...string) string {
	for _, name := range names {
		if v, ok := payload[name]; ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	lower := make(map[string]bool, len(names))
	for _, name := range names {
		lower[strings.ToLower(name)] = true
	}
	for k, v := range payload {
		if lower[strings.ToLower(k)] {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

// amountVariants lists plausible renderings of the amount text: as sent,
// comma-stripped, and renormalized to two decimals. The skey must have been
// computed over one of them.
func amountVariants(raw string) []string {
	variants := appendUnique(nil, raw)
	deComma := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	variants = appendUnique(variants, deComma)
	if d, err := decimal.NewFromString(deComma); err == nil {
		variants = appendUnique(variants, d.String(), d.StringFixed(2))
	}
	return variants
}

func currencyVariants(raw, fallback string) []string {
	variants := appendUnique(nil, raw, strings.ToUpper(strings.TrimSpace(raw)))
	return appendUnique(variants, fallback, strings.ToUpper(strings.TrimSpace(fallback)))
}

// CallbackFields is the subset of the payload the verifier resolved and used.
type CallbackFields struct {
	TranID     string
	OrderRef   string
	StatusCode string
	MerchantID string
	Amount     string
	Currency   string
	AppCode    string
	PayDate    string
	Channel    string
}

// SkeyResult reports a verification outcome with enough detail for
// reconciliation logs. Expected holds the first candidate digest on failure.
type SkeyResult struct {
	OK       bool
	Reason   string
	Expected string
	Received string
	Used     CallbackFields
}

// VerifySkey checks the inbound callback signature:
//
//	pre  = md5(tranID + orderid + status + merchantID + amount + currency)
//	skey = md5(paydate + merchantID + pre + appcode + secretKey)
//
// The merchant id arrives as domain or merchant_id depending on channel, the
// appcode is sometimes omitted, and the amount text varies; each combination
// is attempted before declaring a mismatch.
func (c Config) VerifySkey(payload map[string]string) SkeyResult {
	tranID := getField(payload, "tranID", "tranId", "txnID", "txnId", "txn_id")
	orderRef := getField(payload, "orderid", "orderId", "orderID", "order")
	status := getField(payload, "status", "stat")
	payDate := getField(payload, "paydate", "pay_date", "payDate")
	appCode := getField(payload, "appcode", "app_code", "appCode")
	received := getField(payload, "skey", "sKey", "SKEY")
	channel := getField(payload, "channel")

	merchants := appendUnique(nil,
		getField(payload, "domain"),
		getField(payload, "merchant_id", "merchantId", "merchantID", "MerchantID"),
		c.MerchantID,
	)
	amounts := amountVariants(getField(payload, "amount", "amt"))
	currencies := currencyVariants(getField(payload, "currency", "cur"), c.currency())

	var missing []string
	if tranID == "" {
		missing = append(missing, "tranID")
	}
	if orderRef == "" {
		missing = append(missing, "orderid")
	}
	if status == "" {
		missing = append(missing, "status")
	}
	if len(merchants) == 0 {
		missing = append(missing, "domain")
	}
	if len(amounts) == 0 {
		missing = append(missing, "amount")
	}
	if payDate == "" {
		missing = append(missing, "paydate")
	}
	if received == "" {
		missing = append(missing, "skey")
	}
	if len(missing) > 0 {
		return SkeyResult{
			OK:       false,
			Reason:   "missing_fields:" + strings.Join(missing, ","),
			Received: received,
		}
	}

	appCodes := []string{appCode}
	if appCode != "" {
		// Some payloads carry an appcode the gateway did not sign over.
		appCodes = append(appCodes, "")
	}

	var firstExpected string
	for _, merchant := range merchants {
		for _, amount := range amounts {
			for _, currency := range currencies {
				for _, ac := range appCodes {
					pre := md5Hex(tranID + orderRef + status + merchant + amount + currency)
					expected := md5Hex(payDate + merchant + pre + ac + c.SecretKey)
					if firstExpected == "" {
						firstExpected = expected
					}
					if digestsEqual(expected, received) {
						return SkeyResult{
							OK:       true,
							Expected: expected,
							Received: received,
							Used: CallbackFields{
								TranID:     tranID,
								OrderRef:   orderRef,
								StatusCode: status,
								MerchantID: merchant,
								Amount:     amount,
								Currency:   currency,
								AppCode:    ac,
								PayDate:    payDate,
								Channel:    channel,
							},
						}
					}
				}
			}
		}
	}

	return SkeyResult{
		OK:       false,
		Reason:   "mismatch",
		Expected: firstExpected,
		Received: received,
		Used: CallbackFields{
			TranID:     tranID,
			OrderRef:   orderRef,
			StatusCode: status,
			MerchantID: merchants[0],
			Amount:     amounts[0],
			Currency:   currencies[0],
			AppCode:    appCode,
			PayDate:    payDate,
			Channel:    channel,
		},
	}
}

// PayloadDigest fingerprints a callback payload: fields sorted by key,
// rendered "k=v" joined with "&", then sha256-hexed. Two replays of the same
// notification always digest identically regardless of field order.
func PayloadDigest(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, payload[k]))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

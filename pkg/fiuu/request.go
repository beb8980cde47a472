package fiuu

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PaymentInput describes the order being sent to the hosted payment page.
type PaymentInput struct {
	OrderRef      string
	AmountCents   int
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Channel       string
	Description   string
}

// HostedPaymentRequest is everything the storefront needs to hand the buyer
// to the gateway: the resolved URL, the form fields (signed with vcode) and,
// for GET, the fully assembled redirect URL.
type HostedPaymentRequest struct {
	URL     string
	Method  string
	Fields  map[string]string
	FullURL string
}

var (
	hostedFullURLRe = regexp.MustCompile(`(?i)/RMS/pay/[^/]+(/[^/]+)?$`)
	rmsPayBaseRe    = regexp.MustCompile(`(?i)/RMS/pay\b`)
	rmsPayEndRe     = regexp.MustCompile(`(?i)/RMS/pay$`)
	rmsPayMerchRe   = regexp.MustCompile(`(?i)/RMS/pay/[^/]+$`)
)

// BuildHostedPaymentRequest signs the order and resolves the gateway URL.
// Accepted gateway URL shapes: a {MerchantID}/{Payment_Method} template, a
// bare /RMS/pay base, a /RMS/pay/<merchant>[/<method>] full URL, or a plain
// domain. When the merchant id ends up in the path, the merchant_id field is
// dropped from the form per the gateway contract.
func (c Config) BuildHostedPaymentRequest(in PaymentInput) (*HostedPaymentRequest, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if in.OrderRef == "" {
		return nil, fmt.Errorf("fiuu: order reference is required")
	}
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("fiuu: amount must be positive")
	}

	amountStr := FormatAmount(in.AmountCents)
	currency := c.currency()
	method := "POST"
	if strings.EqualFold(c.RequestMethod, "GET") {
		method = "GET"
	}

	desc := in.Description
	if desc == "" {
		desc = "Order " + in.OrderRef
	}

	fields := map[string]string{
		"merchant_id": c.MerchantID,
		"amount":      amountStr,
		"orderid":     in.OrderRef,
		"bill_name":   in.CustomerName,
		"bill_email":  in.CustomerEmail,
		"bill_mobile": SanitizeMobile(in.CustomerPhone),
		"bill_desc":   desc,
		"currency":    currency,
		"returnurl":   c.ReturnURL,
		"callbackurl": c.CallbackURL,
		"cancelurl":   c.CancelURL,
	}
	if in.Channel != "" {
		fields["channel"] = in.Channel
	}
	fields["vcode"] = Vcode(amountStr, c.MerchantID, in.OrderRef, c.VerifyKey, currency, c.LegacyVcode)

	resolved := c.resolveGatewayURL()

	if strings.Contains(resolved, "/"+c.MerchantID) {
		delete(fields, "merchant_id")
	}

	req := &HostedPaymentRequest{
		URL:    resolved,
		Method: method,
		Fields: fields,
	}
	if method == "GET" {
		qs := url.Values{}
		for k, v := range fields {
			qs.Set(k, v)
		}
		req.FullURL = resolved + "?" + qs.Encode()
	}
	return req, nil
}

func (c Config) resolveGatewayURL() string {
	raw := strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
	merchant := url.PathEscape(c.MerchantID)
	paymentMethod := strings.TrimSpace(c.PaymentMethod)

	switch {
	case strings.Contains(raw, "{MerchantID}") || strings.Contains(raw, "{Payment_Method}"):
		resolved := strings.ReplaceAll(raw, "{MerchantID}", merchant)
		if paymentMethod != "" {
			resolved = strings.ReplaceAll(resolved, "{Payment_Method}", url.PathEscape(paymentMethod))
		} else {
			resolved = strings.ReplaceAll(resolved, "/{Payment_Method}", "")
			resolved = strings.ReplaceAll(resolved, "{Payment_Method}", "")
		}
		return strings.TrimRight(resolved, "/")

	case hostedFullURLRe.MatchString(raw):
		// Already a full hosted URL; use as given.
		return raw

	case rmsPayBaseRe.MatchString(raw):
		if rmsPayEndRe.MatchString(raw) {
			resolved := raw + "/" + merchant
			if paymentMethod != "" {
				resolved += "/" + url.PathEscape(paymentMethod)
			}
			return resolved
		}
		if rmsPayMerchRe.MatchString(raw) && paymentMethod != "" {
			return raw + "/" + url.PathEscape(paymentMethod)
		}
		return raw

	default:
		resolved := raw + "/RMS/pay/" + merchant
		if paymentMethod != "" {
			resolved += "/" + url.PathEscape(paymentMethod)
		}
		return resolved
	}
}

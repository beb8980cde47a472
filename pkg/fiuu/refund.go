package fiuu

import "strings"

// RefundRequestSignature signs an outbound partial-refund API call.
func (c Config) RefundRequestSignature(refundType, refID, txnID, amountStr string) string {
	return md5Hex(refundType + c.MerchantID + refID + txnID + amountStr + c.SecretKey)
}

func (c Config) refundNotifySignature(refundType, merchantID, refID, refundID, txnID, amountStr, status string) string {
	return md5Hex(refundType + merchantID + refID + refundID + txnID + amountStr + status + c.SecretKey)
}

// RefundNotifyResult reports refund-webhook verification plus the resolved
// fields the refund service needs to apply the update.
type RefundNotifyResult struct {
	OK       bool
	Reason   string
	Expected string
	Received string

	RefID    string
	RefundID string
	TxnID    string
	Amount   string
	Status   string
}

// VerifyRefundNotify checks the refund status webhook signature:
//
//	md5(RefundType + MerchantID + RefID + RefundID + TxnID + Amount + Status + secretKey)
func (c Config) VerifyRefundNotify(payload map[string]string) RefundNotifyResult {
	refundType := getField(payload, "RefundType", "refundType")
	merchantID := getField(payload, "MerchantID", "merchantId", "merchantID")
	refID := getField(payload, "RefID", "refId", "refID")
	refundID := getField(payload, "RefundID", "refundId", "refundID")
	txnID := getField(payload, "TxnID", "txnId", "txnID", "tranID", "tranId")
	amount := getField(payload, "Amount", "amount")
	status := getField(payload, "Status", "status")
	received := getField(payload, "Signature", "signature")

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"RefundType", refundType},
		{"MerchantID", merchantID},
		{"RefID", refID},
		{"RefundID", refundID},
		{"TxnID", txnID},
		{"Amount", amount},
		{"Status", status},
		{"Signature", received},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return RefundNotifyResult{
			OK:       false,
			Reason:   "missing_fields:" + strings.Join(missing, ","),
			Received: received,
		}
	}

	expected := c.refundNotifySignature(refundType, merchantID, refID, refundID, txnID, amount, status)
	result := RefundNotifyResult{
		OK:       digestsEqual(expected, received),
		Expected: expected,
		Received: received,
		RefID:    refID,
		RefundID: refundID,
		TxnID:    txnID,
		Amount:   amount,
		Status:   status,
	}
	if !result.OK {
		result.Reason = "mismatch"
	}
	return result
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// OfflineBankTransfer is the audit record for a manual bank-in payment.
// Slip files are purged after the retention window; the row itself is
// tombstoned (SlipDeleted set) and never removed.
type OfflineBankTransfer struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	BankName      string     `gorm:"column:bank_name;not null"`
	ReferenceNo   string     `gorm:"column:reference_no;not null"`
	AmountCents   int        `gorm:"column:amount_cents;not null"`
	SlipPath      string     `gorm:"column:slip_path;not null"`
	UploadedAt    time.Time  `gorm:"column:uploaded_at;not null"`
	SlipDeleted   bool       `gorm:"column:slip_deleted;not null;default:false"`
	SlipDeletedAt *time.Time `gorm:"column:slip_deleted_at"`
	VerifiedAt    *time.Time `gorm:"column:verified_at"`
	VerifiedBy    *string    `gorm:"column:verified_by"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

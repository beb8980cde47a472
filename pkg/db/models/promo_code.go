package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/visolux/store-backend/pkg/enums"
)

// PromoCode is a discount definition. Code is stored uppercase; lookups
// normalize before querying.
type PromoCode struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string          `gorm:"column:code;not null;uniqueIndex:uq_promo_codes_code"`
	Type              enums.PromoType `gorm:"column:type;type:text;not null"`
	PercentOff        int             `gorm:"column:percent_off;not null;default:0"`
	AmountOffCents    int             `gorm:"column:amount_off_cents;not null;default:0"`
	AppliesToShipping bool            `gorm:"column:applies_to_shipping;not null;default:false"`
	Active            bool            `gorm:"column:active;not null;default:true"`
	StartsAt          *time.Time      `gorm:"column:starts_at"`
	EndsAt            *time.Time      `gorm:"column:ends_at"`
	MaxUses           *int            `gorm:"column:max_uses"`
	UseCount          int             `gorm:"column:use_count;not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

package entity

import (
	"net/http"
	"time"

	"refsync/lib/validate"
)

// PriceConfig is the admin-set transaction base every reward
// calculation reads. It is stored versioned (amount plus effective
// timestamp and author) and stamped into each ledger entry, so
// historical calculations stay explainable after a price change.
type PriceConfig struct {
	Amount      int64     `json:"amount" bson:"amount" validate:"required,gt=0"`
	EffectiveAt time.Time `json:"effective_at" bson:"effective_at"`
	UpdatedBy   string    `json:"updated_by" bson:"updated_by"`
}

func (p *PriceConfig) Bind(_ *http.Request) error {
	return validate.Struct(p)
}

package models

// Requests for the scoring HTTP endpoints. Defined in domain for consistency and reuse.

type ScoreRequest struct {
	ID        string  `json:"id" validate:"required"`
	UserID    string  `json:"user_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Currency  string  `json:"currency" default:"USD" validate:"len=3"`
	Merchant  string  `json:"merchant"`
	Category  string  `json:"category"`
	Country   string  `json:"country" validate:"omitempty,len=2"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	DeviceID  string  `json:"device_id"`
	Timestamp string  `json:"timestamp"` // RFC3339 or unix seconds; empty means now
	IPAddress string  `json:"ip_address"`
	UserAgent string  `json:"user_agent"`
}

type HistoryRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

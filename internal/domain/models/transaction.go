package models

import "time"

// Transaction is an immutable authorization event as received from the
// payment switch. It is never mutated after construction.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Merchant  string    `json:"merchant"`
	Category  string    `json:"category"`
	Country   string    `json:"country"` // ISO 3166-1 alpha-2
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// HasLocation reports whether the transaction carries usable coordinates.
// (0, 0) is treated as "no location"; it is open ocean, not a merchant.
func (t *Transaction) HasLocation() bool {
	return t.Latitude != 0 || t.Longitude != 0
}

// HistoryWindow is a bounded, newest-first view of a user's prior
// transactions. The history store owns the backing slice and shares it
// across callers; it is never mutated once built, so readers must treat
// it as read-only.
type HistoryWindow []Transaction

// Latest returns the most recent prior transaction, or nil when empty.
func (h HistoryWindow) Latest() *Transaction {
	if len(h) == 0 {
		return nil
	}
	return &h[0]
}

// Since returns the entries with timestamps at or after cutoff. The window
// is newest-first, so the prefix up to the first older entry suffices.
func (h HistoryWindow) Since(cutoff time.Time) HistoryWindow {
	for i := range h {
		if h[i].Timestamp.Before(cutoff) {
			return h[:i]
		}
	}
	return h
}

// Amounts returns the amounts of up to n most recent entries.
func (h HistoryWindow) Amounts(n int) []float64 {
	if n <= 0 || n > len(h) {
		n = len(h)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = h[i].Amount
	}
	return out
}

package model

type EventType string

const (
	EventBalanceUpdated    EventType = "balance.updated"
	EventWithdrawalCreated EventType = "withdrawal.created"
	EventWithdrawalUpdated EventType = "withdrawal.updated"
	EventStatsUpdated      EventType = "stats.updated"
)

// Event is a ledger change pushed to live subscribers. UserID addresses the
// owning user; Admin marks events the admin dashboard should see.
type Event struct {
	Type    EventType `json:"type"`
	UserID  string    `json:"-"`
	Admin   bool      `json:"-"`
	Payload any       `json:"payload,omitempty"`
}

type BalancePayload struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

package model

import "time"

type WithdrawalAction string

const (
	ActionApprove WithdrawalAction = "approve"
	ActionReject  WithdrawalAction = "reject"
)

// ResultStatus is the terminal status an action moves a pending request to.
func (a WithdrawalAction) ResultStatus() (Status, bool) {
	switch a {
	case ActionApprove:
		return StatusSuccess, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

type WithdrawalMethod string

const (
	MethodUPI  WithdrawalMethod = "UPI"
	MethodBank WithdrawalMethod = "BANK"
)

// WithdrawalRequest shares its ID with the DEBIT transaction created with it.
// User fields are a snapshot taken at request time.
type WithdrawalRequest struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	UserName  string           `json:"userName"`
	UserPhone string           `json:"userPhone"`
	Amount    int64            `json:"amount"`
	Method    WithdrawalMethod `json:"method"`
	Details   string           `json:"details"`
	Status    Status           `json:"status"`
	Date      time.Time        `json:"date"`
}

type AdminStats struct {
	TotalUsers      int   `json:"totalUsers"`
	TotalPayouts    int64 `json:"totalPayouts"`
	PendingRequests int   `json:"pendingRequests"`
}

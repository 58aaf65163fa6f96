package model

import "time"

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Balance         int64     `json:"balance"`
	ReferralCode    string    `json:"referralCode"`
	LastCheckInDate string    `json:"lastCheckInDate,omitempty"`
	JoinedDate      time.Time `json:"joinedDate"`

	// TaskCompletions counts repeatable task rewards claimed on TaskDay.
	TaskDay         string         `json:"taskDay,omitempty"`
	TaskCompletions map[string]int `json:"taskCompletions,omitempty"`
}

// CheckedInOn reports whether the user already claimed the check-in reward
// for the given calendar day (formatted as DateLayout).
func (u *User) CheckedInOn(day string) bool {
	return u.LastCheckInDate != "" && u.LastCheckInDate == day
}

// CompletionsOn returns how many times taskID was rewarded on day. Counts from
// an earlier day do not carry over.
func (u *User) CompletionsOn(day, taskID string) int {
	if u.TaskDay != day {
		return 0
	}
	return u.TaskCompletions[taskID]
}

const DateLayout = "2006-01-02"

// Session is everything the ledger keeps for one logged-in user.
type Session struct {
	User         *User
	Transactions []*Transaction
}

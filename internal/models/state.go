// Package models defines session state structures for the intake script.
package models

import "time"

// SessionState is a named point in the fixed five-step intake script.
type SessionState string

const (
	// StateInitial is both the starting point of a run and the terminal of
	// the previous one.
	StateInitial SessionState = "initial"
	// StateAskingHealthInsurance waits for a yes/no interest answer.
	StateAskingHealthInsurance SessionState = "askingHealthInsurance"
	// StateAskingFamilySize waits for a positive integer family size.
	StateAskingFamilySize SessionState = "askingFamilySize"
	// StateAskingIncome waits for a positive numeric household income.
	StateAskingIncome SessionState = "askingIncome"
	// StateAskingGender waits for one of male, female, other.
	StateAskingGender SessionState = "askingGender"
)

// IsValidSessionState checks if the given state is part of the script.
func IsValidSessionState(s SessionState) bool {
	switch s {
	case StateInitial, StateAskingHealthInsurance, StateAskingFamilySize,
		StateAskingIncome, StateAskingGender:
		return true
	default:
		return false
	}
}

// Answers holds the values collected during one run of the intake script.
// A field is populated only once its question has been answered validly;
// zero values mean the question has not been reached yet.
type Answers struct {
	WantsHealthInsurance bool    `json:"wants_health_insurance,omitempty"`
	FamilySize           int     `json:"family_size,omitempty"`
	Income               float64 `json:"income,omitempty"`
	Gender               string  `json:"gender,omitempty"`
}

// Session is the per-user, process-lifetime conversation state: the current
// position in the script, the answers collected so far, and the turns
// exchanged during this process lifetime.
type Session struct {
	UserID    string       `json:"user_id"`
	State     SessionState `json:"state"`
	Answers   Answers      `json:"answers"`
	Turns     []Turn       `json:"turns,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

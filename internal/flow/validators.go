package flow

import (
	"strconv"
	"strings"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// Validators are pure predicates over the raw answer text, one per question.
// They perform format validation only; the engine applies parsed values to
// the session once an answer passes.

// IsValidYesNo reports whether the answer is "yes" or "no", case-insensitive.
func IsValidYesNo(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "no":
		return true
	default:
		return false
	}
}

// IsValidFamilySize reports whether the answer parses as a strictly positive
// integer.
func IsValidFamilySize(answer string) bool {
	size, err := strconv.Atoi(strings.TrimSpace(answer))
	return err == nil && size > 0
}

// IsValidIncome reports whether the answer parses as a strictly positive
// number, fractional values included.
func IsValidIncome(answer string) bool {
	income, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	return err == nil && income > 0
}

// IsValidGender reports whether the answer is one of the fixed closed set
// male, female, other, case-insensitive.
func IsValidGender(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "male", "female", "other":
		return true
	default:
		return false
	}
}

// ErrorMessageFor maps a stage to its correction prompt. Stages without a
// dedicated message fall back to a generic retry prompt, so the mapping is
// total over every state the script can be asked in.
func ErrorMessageFor(state models.SessionState) string {
	switch state {
	case models.StateAskingHealthInsurance:
		return MsgHealthInsuranceError
	case models.StateAskingFamilySize:
		return MsgFamilySizeError
	case models.StateAskingIncome:
		return MsgIncomeError
	case models.StateAskingGender:
		return MsgGenderError
	default:
		return MsgGenericRetry
	}
}

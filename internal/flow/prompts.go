// Package flow implements the dialogue engine driving the intake script.
package flow

// Fixed script messages. The texts are part of the external contract: the
// transport delivers them verbatim and tests assert on them.
const (
	// MsgHealthInsurancePrompt opens every run on first contact.
	MsgHealthInsurancePrompt = "Are you looking for a health insurance plan?"
	// MsgFamilySizePrompt is sent after an affirmative interest answer.
	MsgFamilySizePrompt = "How many people are in your family?"
	// MsgIncomePrompt is sent after a valid family size.
	MsgIncomePrompt = "What is your household income?"
	// MsgGenderPrompt is sent after a valid income.
	MsgGenderPrompt = "What is your gender? (male, female, other)"
	// MsgClosing ends a completed run.
	MsgClosing = "Thank you! Let me process your data..."
	// MsgDeclineClosing ends a run after the user declines interest.
	MsgDeclineClosing = "No problem! Reach out any time if you change your mind."
)

// Correction prompts, one per question.
const (
	MsgHealthInsuranceError = `Please respond with "yes" or "no".`
	MsgFamilySizeError      = "Please provide a valid number for your family size."
	MsgIncomeError          = "Please provide a valid amount for your household income."
	MsgGenderError          = `Please respond with "male", "female", or "other" for your gender.`
	// MsgGenericRetry is the fallback for any unmapped stage.
	MsgGenericRetry = "I didn’t quite get that. Could you try again?"
)

// MsgCompletionApology replaces the generated text whenever the completion
// gateway fails. Raw provider errors never reach the user.
const MsgCompletionApology = "Oops! Something went wrong while processing your data."

// intakeSystemPrompt is the fixed system prompt for every completion request.
const intakeSystemPrompt = "You are a helpful assistant."

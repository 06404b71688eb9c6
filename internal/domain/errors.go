package domain

import "errors"

// ErrQuestionBankEmpty is returned when the configured bank has no questions.
// Sentinel errors exist only for the loading infrastructure; the state machine
// treats invalid commands as inert no-ops instead of erroring.
var ErrQuestionBankEmpty = errors.New("question bank is empty")

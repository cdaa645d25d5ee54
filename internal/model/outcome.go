package model

// OutcomeStatus classifies the result of one per-record step.
type OutcomeStatus string

const (
	OutcomeFound  OutcomeStatus = "found"
	OutcomeAbsent OutcomeStatus = "absent"
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is the typed result of processing a single record. Failed
// outcomes carry the error that caused them; they never abort a batch.
type Outcome struct {
	Status OutcomeStatus
	Err    error
}

// Found returns a successful outcome.
func Found() Outcome { return Outcome{Status: OutcomeFound} }

// Absent returns an outcome for an expected, terminal absence.
func Absent() Outcome { return Outcome{Status: OutcomeAbsent} }

// Failed returns an outcome for a per-record failure.
func Failed(err error) Outcome { return Outcome{Status: OutcomeFailed, Err: err} }

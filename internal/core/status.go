package core

import "fmt"

// Status is the enrichment status of a developer record. It is a closed
// enumeration mirroring the Postgres enum `enrichment_status`; the pipeline
// only ever moves a record along the edges enumerated in CanTransition.
type Status string

const (
	// StatusInitial means the username has been collected but no profile
	// data has been fetched yet. This is the entry state for every record.
	StatusInitial Status = "INITIAL"

	// StatusProcessing means the record is currently leased by a worker.
	// claimed_by and processing_started_at are non-null exactly while a
	// record is in this state.
	StatusProcessing Status = "PROCESSING"

	// StatusProfiled means the GitHub profile has been fetched. A PROFILED
	// record is the claimable input of the social-enrichment stage.
	StatusProfiled Status = "PROFILED"

	// StatusEnhanced means social enrichment completed. Terminal success.
	StatusEnhanced Status = "ENHANCED"

	// StatusFailed means processing failed retry_count >= max retries ago.
	// Terminal; the record is kept with last_error for inspection.
	StatusFailed Status = "FAILED"
)

// Statuses lists every valid status, in pipeline order.
func Statuses() []Status {
	return []Status{StatusInitial, StatusProcessing, StatusProfiled, StatusEnhanced, StatusFailed}
}

// ParseStatus converts a string into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", NewValidationError(fmt.Sprintf("unknown enrichment status %q", s), map[string]any{
			"status": s,
		})
	}
	return st, nil
}

// Valid reports whether s is a member of the closed enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusInitial, StatusProcessing, StatusProfiled, StatusEnhanced, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state. No transition leaves a
// terminal state.
func (s Status) Terminal() bool {
	return s == StatusEnhanced || s == StatusFailed
}

// Claimable reports whether records in s may be leased by a worker.
// Only non-terminal, non-PROCESSING states qualify.
func (s Status) Claimable() bool {
	return s == StatusInitial || s == StatusProfiled
}

// CanTransition reports whether from -> to is an edge of the pipeline state
// machine. The store rejects any status write that is not an edge here.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusInitial:
		return to == StatusProcessing
	case StatusProfiled:
		return to == StatusProcessing
	case StatusProcessing:
		// Success commit, retry/reclaim return, or terminal failure.
		return to == StatusProfiled || to == StatusEnhanced || to == StatusInitial || to == StatusFailed
	}
	return false
}

// Stage describes one enrichment stage of the pipeline: records in From are
// claimed, processed, and on success land in Done. Done of a non-final stage
// is the From of the next one.
type Stage struct {
	Name string
	From Status
	Done Status
}

var (
	// StageProfile fetches the GitHub profile: INITIAL -> PROFILED.
	StageProfile = Stage{Name: "profile", From: StatusInitial, Done: StatusProfiled}

	// StageSocial extracts social links from the fetched profile and its
	// linked pages: PROFILED -> ENHANCED.
	StageSocial = Stage{Name: "social", From: StatusProfiled, Done: StatusEnhanced}
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageProfile, StageSocial}
}

// StageByName looks a stage up by its name.
func StageByName(name string) (Stage, bool) {
	for _, st := range Stages() {
		if st.Name == name {
			return st, true
		}
	}
	return Stage{}, false
}

// Validate checks that the stage is one of the known pipeline stages.
func (s Stage) Validate() error {
	if _, ok := StageByName(s.Name); !ok || !s.From.Claimable() || !CanTransition(StatusProcessing, s.Done) {
		return NewValidationError(fmt.Sprintf("unknown pipeline stage %q", s.Name), map[string]any{
			"stage": s.Name,
		})
	}
	return nil
}

package events

import "fmt"

// Subject hierarchy for pipeline lifecycle events.
//
//	scrape.events.unit.claimed    -- a batch of records was leased
//	scrape.events.unit.profiled   -- profile stage committed
//	scrape.events.unit.enhanced   -- social stage committed
//	scrape.events.unit.retried    -- failure reported, record returned to the pool
//	scrape.events.unit.failed     -- failure reported, record terminally failed
//	scrape.events.lease.reclaimed -- stale leases swept back to pending
const SubjectPrefix = "scrape"

// Event types published by the worker loop and the reclaim scheduler.
const (
	TypeUnitClaimed    = "unit.claimed"
	TypeUnitProfiled   = "unit.profiled"
	TypeUnitEnhanced   = "unit.enhanced"
	TypeUnitRetried    = "unit.retried"
	TypeUnitFailed     = "unit.failed"
	TypeLeaseReclaimed = "lease.reclaimed"
)

// EventSubject returns the subject for a lifecycle event type.
// Example: scrape.events.unit.profiled
func EventSubject(eventType string) string {
	return fmt.Sprintf("%s.events.%s", SubjectPrefix, eventType)
}

// EventsAllSubject returns the wildcard subject for all lifecycle events.
func EventsAllSubject() string {
	return fmt.Sprintf("%s.events.>", SubjectPrefix)
}

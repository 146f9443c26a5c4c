// Package dispatch turns reported incidents into responder assignments.
//
// The AssignmentManager owns the incident lifecycle: intake, matching
// against the current responder pool, assignment bookkeeping, responder
// notification and status transitions. The Sweeper periodically retries
// incidents that are still open.
package dispatch

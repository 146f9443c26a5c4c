// Package events defines the dispatch events emitted on the event bus.
//
// Available event types:
//   - IncidentReported: a new incident was stored
//   - MatchDecided: the matcher ran for an incident, with or without a winner
//   - AssignmentChanged: an assignment was created, updated or removed
package events

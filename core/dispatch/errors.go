package dispatch

import "errors"

var (
	ErrIncidentNotFound   = errors.New("incident not found")
	ErrIncidentNotOpen    = errors.New("incident is not open")
	ErrAlreadyAssigned    = errors.New("responder already assigned")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrInvalidStatus      = errors.New("invalid assignment status")
	ErrInvalidIncident    = errors.New("invalid incident")
	ErrResponderNotFound  = errors.New("responder not found")
)

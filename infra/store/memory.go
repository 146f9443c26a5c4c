// Package store keeps responders, incidents and assignments in memory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/kilianp07/responder/core/model"
)

type pairKey struct {
	incident  string
	responder string
}

// MemoryStore is a mutex-protected in-memory store. Responders are returned
// in insertion order, which is the order the matcher breaks ties on.
type MemoryStore struct {
	mu          sync.RWMutex
	responders  map[string]model.Responder
	order       []string
	incidents   map[string]model.Incident
	assignments map[pairKey]model.Assignment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		responders:  map[string]model.Responder{},
		incidents:   map[string]model.Incident{},
		assignments: map[pairKey]model.Assignment{},
	}
}

// SetResponder inserts or replaces a responder, keeping its original position.
func (s *MemoryStore) SetResponder(r model.Responder) {
	s.mu.Lock()
	if _, ok := s.responders[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.responders[r.ID] = cloneResponder(r)
	s.mu.Unlock()
}

// RemoveResponder deletes a responder from the pool.
func (s *MemoryStore) RemoveResponder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responders[id]; !ok {
		return
	}
	delete(s.responders, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// SetActive toggles a responder's availability.
func (s *MemoryStore) SetActive(id string, active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responders[id]
	if ok {
		r.Active = active
		s.responders[id] = r
	}
	return ok
}

// UpdatePosition moves a responder.
func (s *MemoryStore) UpdatePosition(id string, c model.Coordinate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responders[id]
	if ok {
		s.responders[id] = r.WithPosition(c)
	}
	return ok
}

// LoadResponders reads a JSON array of responders and adds them to the pool.
func (s *MemoryStore) LoadResponders(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var rs []model.Responder
	if err := json.Unmarshal(data, &rs); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, r := range rs {
		if r.ID == "" {
			return 0, fmt.Errorf("parse %s: responder without id", path)
		}
	}
	for _, r := range rs {
		s.SetResponder(r)
	}
	return len(rs), nil
}

func (s *MemoryStore) Responders(ctx context.Context) ([]model.Responder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Responder, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, cloneResponder(s.responders[id]))
	}
	return res, nil
}

func (s *MemoryStore) Responder(ctx context.Context, id string) (model.Responder, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Responder{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responders[id]
	return cloneResponder(r), ok, nil
}

func (s *MemoryStore) SaveIncident(ctx context.Context, inc model.Incident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if inc.ID == "" {
		return fmt.Errorf("incident without id")
	}
	s.mu.Lock()
	s.incidents[inc.ID] = inc
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Incident(ctx context.Context, id string) (model.Incident, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Incident{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	return inc, ok, nil
}

func (s *MemoryStore) Incidents(ctx context.Context, status model.IncidentStatus) ([]model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	res := make([]model.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		if status != "" && inc.Status != status {
			continue
		}
		res = append(res, inc)
	}
	s.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) SaveAssignment(ctx context.Context, a model.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.assignments[pairKey{a.IncidentID, a.ResponderID}] = a
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Assignment(ctx context.Context, incidentID, responderID string) (model.Assignment, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[pairKey{incidentID, responderID}]
	return a, ok, nil
}

func (s *MemoryStore) Assignments(ctx context.Context, incidentID string) ([]model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var res []model.Assignment
	for k, a := range s.assignments {
		if k.incident == incidentID {
			res = append(res, a)
		}
	}
	s.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ResponderID < res[j].ResponderID
	})
	return res, nil
}

func (s *MemoryStore) DeleteAssignment(ctx context.Context, incidentID, responderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.assignments, pairKey{incidentID, responderID})
	s.mu.Unlock()
	return nil
}

func cloneResponder(r model.Responder) model.Responder {
	if r.Latitude != nil {
		lat := *r.Latitude
		r.Latitude = &lat
	}
	if r.Longitude != nil {
		lon := *r.Longitude
		r.Longitude = &lon
	}
	r.Skills = append([]string(nil), r.Skills...)
	return r
}

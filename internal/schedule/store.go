// Package schedule owns the mutable collection of training-session
// bookings.
package schedule

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/pkg/metrics"
)

// ErrNotFound is returned when no entry matches the requested id.
var ErrNotFound = errors.New("schedule entry not found")

// Store is an in-memory ordered collection of schedule entries. Ids are
// assigned by the store and never reused within a process lifetime going
// forward (next id is always max existing + 1).
type Store struct {
	mu      sync.RWMutex
	entries []model.ScheduleEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// NewSeeded creates a store pre-populated with the demo schedule, with
// dates spread over the next few days relative to now.
func NewSeeded(now time.Time) *Store {
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("2006-01-02")
	}

	s := &Store{
		entries: []model.ScheduleEntry{
			{ID: 1, SchoolName: "Raffles Institution", Topic: "Advanced Robotics Workshop", Date: day(0), Time: "10:00", Status: model.StatusConfirmed, Trainer: "John Doe", ReminderMinutes: 30},
			{ID: 2, SchoolName: "Hwa Chong Institution", Topic: "Intro to Python for Sec 1", Date: day(0), Time: "14:00", Status: model.StatusConfirmed, Trainer: "Jane Smith"},
			{ID: 3, SchoolName: "National Junior College", Topic: "Cybersecurity Basics", Date: day(1), Time: "09:30", Status: model.StatusPending, Trainer: "Alex Tan"},
			{ID: 4, SchoolName: "Anglo-Chinese School (Independent)", Topic: "AI in Education Seminar", Date: day(1), Time: "13:00", Status: model.StatusConfirmed, Trainer: "Emily Carter"},
			{ID: 5, SchoolName: "Victoria School", Topic: "Web Development Crash Course", Date: day(2), Time: "11:00", Status: model.StatusCancelled, Trainer: "Michael Bay", CancellationReason: "Trainer has a personal emergency."},
			{ID: 6, SchoolName: "Dunman High School", Topic: "Data Science with Python", Date: day(2), Time: "15:00", Status: model.StatusPending, Trainer: "Sarah Chen"},
			{ID: 7, SchoolName: "Nanyang Girls' High School", Topic: "Mobile App Design Principles", Date: day(3), Time: "10:30", Status: model.StatusConfirmed, Trainer: "David Lee"},
		},
	}
	metrics.ScheduleEntries.Set(float64(len(s.entries)))
	return s
}

// List returns a copy of all entries in insertion order.
func (s *Store) List() []model.ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given id.
func (s *Store) Get(id int) (model.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.ScheduleEntry{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
}

// Add inserts a new entry, assigning the next id, and returns the stored
// entry. Any id supplied by the caller is ignored.
func (s *Store) Add(entry model.ScheduleEntry) model.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextIDLocked()
	s.entries = append(s.entries, entry)
	metrics.ScheduleEntries.Set(float64(len(s.entries)))
	return entry
}

// Update replaces the entry matching entry.ID.
func (s *Store) Update(entry model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry
			return nil
		}
	}
	return fmt.Errorf("id %d: %w", entry.ID, ErrNotFound)
}

// Delete removes the entry with the given id. Ids of deleted entries are
// not reused as long as a higher id remains.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			metrics.ScheduleEntries.Set(float64(len(s.entries)))
			return nil
		}
	}
	return fmt.Errorf("id %d: %w", id, ErrNotFound)
}

// AddSuggestedAction appends a transient suggested action to the entry.
func (s *Store) AddSuggestedAction(id int, action model.SuggestedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].SuggestedActions = append(s.entries[i].SuggestedActions, action)
			return nil
		}
	}
	return fmt.Errorf("id %d: %w", id, ErrNotFound)
}

// ClearAllSuggestedActions removes every suggested action from every entry.
// Idempotent.
func (s *Store) ClearAllSuggestedActions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		s.entries[i].SuggestedActions = nil
	}
}

// Cancellable returns the entries still open for cancellation, in
// insertion order.
func (s *Store) Cancellable() []model.ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScheduleEntry
	for _, e := range s.entries {
		if e.Cancellable() {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) nextIDLocked() int {
	max := 0
	for _, e := range s.entries {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

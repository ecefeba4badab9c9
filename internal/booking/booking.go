// Package booking walks a member through booking a coaching session:
// load a coach's day, pick an open slot, a length and a medium, then book.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/careerdeck/internal/client"
	"github.com/sakif/careerdeck/internal/model"
)

// API is the subset of the HTTP client a booking needs.
type API interface {
	Coach(ctx context.Context, id string) (*model.Coach, error)
	Availability(ctx context.Context, coachID, date string) ([]model.TimeSlot, error)
	BookSession(ctx context.Context, req client.BookRequest) (*model.CoachingSession, error)
}

var (
	ErrNoAvailability   = errors.New("availability not loaded")
	ErrUnknownSlot      = errors.New("no such slot")
	ErrSlotUnavailable  = errors.New("slot is not available")
	ErrNoSlot           = errors.New("no slot selected")
	ErrInvalidDuration  = errors.New("duration must be 30, 60 or 90 minutes")
	ErrMediumNotOffered = errors.New("coach does not offer this session type")
	ErrBusy             = errors.New("booking in flight")
	ErrConfirmed        = errors.New("already booked")
)

// DefaultDuration is preselected after availability loads.
const DefaultDuration = 60

// Phase of a booking flow.
type Phase int

const (
	Selecting Phase = iota
	Booking
	Confirmed
)

func (p Phase) String() string {
	switch p {
	case Selecting:
		return "selecting"
	case Booking:
		return "booking"
	case Confirmed:
		return "confirmed"
	}
	return "unknown"
}

// Flow holds one booking attempt. It is safe for concurrent use.
type Flow struct {
	api    API
	logger *slog.Logger

	mu        sync.Mutex
	phase     Phase
	coach     *model.Coach
	date      string
	slots     []model.TimeSlot
	slot      string
	duration  int
	medium    model.SessionMedium
	confirmed *model.CoachingSession
	err       error
}

// New returns a flow with nothing loaded. A nil logger discards.
func New(api API, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Flow{api: api, logger: logger}
}

// LoadAvailability fetches the coach and their slots on date and clears
// any previous selection. The first advertised medium and DefaultDuration
// are preselected.
func (f *Flow) LoadAvailability(ctx context.Context, coachID, date string) error {
	f.mu.Lock()
	if f.phase != Selecting {
		defer f.mu.Unlock()
		if f.phase == Confirmed {
			return ErrConfirmed
		}
		return ErrBusy
	}
	f.mu.Unlock()

	coach, err := f.api.Coach(ctx, coachID)
	if err != nil {
		return f.fail("loading coach", err)
	}
	slots, err := f.api.Availability(ctx, coachID, date)
	if err != nil {
		return f.fail("loading availability", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.coach = coach
	f.date = date
	f.slots = slots
	f.slot = ""
	f.duration = DefaultDuration
	f.medium = ""
	if len(coach.SessionTypes) > 0 {
		f.medium = coach.SessionTypes[0]
	}
	f.err = nil
	return nil
}

func (f *Flow) fail(op string, err error) error {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.logger.Warn(op+" failed", slog.String("error", err.Error()))
	return err
}

// SelectSlot picks a start time. Only slots flagged available can be chosen.
func (f *Flow) SelectSlot(clock string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.selecting(); err != nil {
		return err
	}
	i := slices.IndexFunc(f.slots, func(s model.TimeSlot) bool { return s.Time == clock })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, clock)
	}
	if !f.slots[i].Available {
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, clock)
	}
	f.slot = clock
	return nil
}

// SetDuration picks 30, 60 or 90 minutes.
func (f *Flow) SetDuration(minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.selecting(); err != nil {
		return err
	}
	if !model.ValidDuration(minutes) {
		return ErrInvalidDuration
	}
	f.duration = minutes
	return nil
}

// SetType picks the medium; it must be one the coach advertises.
func (f *Flow) SetType(m model.SessionMedium) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.selecting(); err != nil {
		return err
	}
	if !f.coach.Offers(m) {
		return fmt.Errorf("%w: %s", ErrMediumNotOffered, m)
	}
	f.medium = m
	return nil
}

// selecting reports why the selection cannot change. Callers hold mu.
func (f *Flow) selecting() error {
	switch f.phase {
	case Booking:
		return ErrBusy
	case Confirmed:
		return ErrConfirmed
	}
	if f.coach == nil {
		return ErrNoAvailability
	}
	return nil
}

// Book sends exactly one booking request for the current selection. On
// failure the selection is kept so the member can adjust and retry.
func (f *Flow) Book(ctx context.Context, topic string) (*model.CoachingSession, error) {
	f.mu.Lock()
	if err := f.selecting(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.slot == "" {
		f.mu.Unlock()
		return nil, ErrNoSlot
	}
	if f.medium == "" {
		f.mu.Unlock()
		return nil, ErrMediumNotOffered
	}
	req := client.BookRequest{
		CoachID:  f.coach.ID,
		Date:     f.date,
		Time:     f.slot,
		Duration: f.duration,
		Type:     f.medium,
		Topic:    strings.TrimSpace(topic),
	}
	f.phase = Booking
	f.mu.Unlock()

	session, err := f.api.BookSession(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.phase = Selecting
		f.err = err
		f.logger.Warn("booking failed",
			slog.String("coachID", req.CoachID),
			slog.String("date", req.Date),
			slog.String("time", req.Time),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	f.phase = Confirmed
	f.confirmed = session
	f.err = nil
	f.logger.Info("coaching session booked", slog.String("sessionID", session.ID))
	return session, nil
}

// Snapshot is a consistent read of the flow for rendering.
type Snapshot struct {
	Phase     Phase
	Coach     *model.Coach
	Date      string
	Slots     []model.TimeSlot
	Slot      string
	Duration  int
	Type      model.SessionMedium
	Confirmed *model.CoachingSession
	Err       error
}

// Snapshot returns a consistent copy of the flow for rendering.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Phase:     f.phase,
		Coach:     f.coach,
		Date:      f.date,
		Slots:     slices.Clone(f.slots),
		Slot:      f.slot,
		Duration:  f.duration,
		Type:      f.medium,
		Confirmed: f.confirmed,
		Err:       f.err,
	}
}

// Err is the last load or booking error, nil after a success.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

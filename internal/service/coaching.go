package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/repository"
)

const MaxTopicLength = 500

// CoachingService exposes coach availability and books sessions.
// Clock times are interpreted in loc (the server's zone by default).
type CoachingService struct {
	repo   repository.CoachingRepository
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewCoachingService creates a new CoachingService.
func NewCoachingService(repo repository.CoachingRepository, logger *slog.Logger) *CoachingService {
	return &CoachingService{
		repo:   repo,
		logger: logger,
		loc:    time.Local,
		now:    time.Now,
	}
}

func (s *CoachingService) Coaches(ctx context.Context) ([]model.Coach, error) {
	return s.repo.ListCoaches(ctx)
}

func (s *CoachingService) Coach(ctx context.Context, id string) (*model.Coach, error) {
	id, err := requireID("coachId", id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetCoach(ctx, id)
}

// Availability lists every 30-minute start time in the coach's working
// window on date. Slots are unavailable when they overlap a scheduled
// session or have already started. On a day the coach does not work every
// slot is unavailable.
func (s *CoachingService) Availability(ctx context.Context, coachID, date string) ([]model.TimeSlot, error) {
	coach, err := s.Coach(ctx, coachID)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}
	booked, err := s.repo.ScheduledOn(ctx, coach.ID, date)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	return s.slotsFor(coach, day, booked), nil
}

func (s *CoachingService) parseDay(date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("date", "date must be in YYYY-MM-DD format")
	}
	return day, nil
}

func (s *CoachingService) slotsFor(coach *model.Coach, day time.Time, booked []model.CoachingSession) []model.TimeSlot {
	start, errStart := model.ParseClock(coach.WorkStart)
	end, errEnd := model.ParseClock(coach.WorkEnd)
	if errStart != nil || errEnd != nil {
		s.logger.Warn("coach has an invalid working window", slog.String("coachID", coach.ID))
		return []model.TimeSlot{}
	}

	works := coach.WorksOn(day.Weekday())
	now := s.now()

	slots := make([]model.TimeSlot, 0, (end-start)/model.SlotMinutes)
	for t := start; t+model.SlotMinutes <= end; t += model.SlotMinutes {
		slotStart := day.Add(time.Duration(t) * time.Minute)
		available := works && slotStart.After(now) && !overlapsAny(t, model.SlotMinutes, booked)
		slots = append(slots, model.TimeSlot{Time: model.FormatClock(t), Available: available})
	}
	return slots
}

func overlapsAny(start, length int, booked []model.CoachingSession) bool {
	for _, b := range booked {
		bStart, err := model.ParseClock(b.Time)
		if err != nil {
			continue
		}
		if model.Overlaps(start, length, bStart, b.Duration) {
			return true
		}
	}
	return false
}

// BookRequest is a member's booking attempt.
type BookRequest struct {
	CoachID  string
	Date     string
	Time     string
	Duration int
	Type     model.SessionMedium
	Topic    string
}

// Book validates the request against the coach's offer and live schedule
// and inserts the session. The repository re-checks overlap inside its
// transaction, so two members racing for one slot get one success and one
// Conflict.
func (s *CoachingService) Book(ctx context.Context, userID string, req BookRequest) (*model.CoachingSession, error) {
	if !model.ValidDuration(req.Duration) {
		return nil, apperror.ValidationFailed("duration", "duration must be 30, 60 or 90 minutes")
	}
	medium, err := model.ParseSessionMedium(string(req.Type))
	if err != nil {
		return nil, apperror.ValidationFailed("type", "type must be video, audio or chat")
	}
	topic, err := checkLength("topic", req.Topic, MaxTopicLength, false)
	if err != nil {
		return nil, err
	}
	start, err := model.ParseClock(req.Time)
	if err != nil {
		return nil, apperror.ValidationFailed("time", "time must be in HH:MM format")
	}

	coach, err := s.Coach(ctx, req.CoachID)
	if err != nil {
		return nil, err
	}
	if !coach.Offers(medium) {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("%s does not offer %s sessions", coach.Name, medium))
	}
	day, err := s.parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if !coach.WorksOn(day.Weekday()) {
		return nil, apperror.ValidationFailed("date", fmt.Sprintf("%s does not take sessions on %s", coach.Name, day.Weekday()))
	}

	booked, err := s.repo.ScheduledOn(ctx, coach.ID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	slots := s.slotsFor(coach, day, booked)
	byTime := make(map[string]model.TimeSlot, len(slots))
	for _, sl := range slots {
		byTime[sl.Time] = sl
	}

	if !day.Add(time.Duration(start) * time.Minute).After(s.now()) {
		return nil, apperror.ValidationFailed("time", "the selected time is in the past")
	}
	// Every block the session covers must be a slot inside the window.
	for t := start; t < start+req.Duration; t += model.SlotMinutes {
		sl, ok := byTime[model.FormatClock(t)]
		if !ok {
			return nil, apperror.ValidationFailed("time", "the session must fit inside the coach's working hours")
		}
		if !sl.Available {
			return nil, apperror.Conflict("the selected time is no longer available")
		}
	}

	session := &model.CoachingSession{
		CoachID:  coach.ID,
		UserID:   userID,
		Date:     req.Date,
		Time:     model.FormatClock(start),
		Duration: req.Duration,
		Type:     medium,
		Topic:    topic,
	}
	if err := s.repo.CreateBooking(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("coaching session booked",
		slog.String("sessionID", session.ID),
		slog.String("coachID", coach.ID),
		slog.String("date", session.Date),
		slog.String("time", session.Time),
		slog.Int("duration", session.Duration),
	)
	return session, nil
}

// MySessions lists the caller's bookings, soonest first.
func (s *CoachingService) MySessions(ctx context.Context, userID string) ([]model.CoachingSession, error) {
	return s.repo.ListBookingsByUser(ctx, userID)
}

// Cancel moves one of the caller's scheduled sessions to cancelled.
func (s *CoachingService) Cancel(ctx context.Context, userID, sessionID string) (*model.CoachingSession, error) {
	session, err := s.booking(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperror.NotFound("coaching session", sessionID)
	}
	return s.setStatus(ctx, session, model.CoachingCancelled)
}

// CompleteSession marks a session as held. Admin only; the handler enforces
// the role.
func (s *CoachingService) CompleteSession(ctx context.Context, sessionID string) (*model.CoachingSession, error) {
	session, err := s.booking(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, session, model.CoachingCompleted)
}

func (s *CoachingService) booking(ctx context.Context, sessionID string) (*model.CoachingSession, error) {
	sessionID, err := requireID("sessionId", sessionID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetBooking(ctx, sessionID)
}

func (s *CoachingService) setStatus(ctx context.Context, session *model.CoachingSession, to model.CoachingStatus) (*model.CoachingSession, error) {
	if !session.Status.CanTransition(to) {
		return nil, apperror.Conflict(fmt.Sprintf("session is %s and cannot become %s", session.Status, to))
	}
	if err := s.repo.SetBookingStatus(ctx, session.ID, session.Status, to); err != nil {
		return nil, err
	}
	session.Status = to
	session.UpdatedAt = s.now()

	s.logger.Info("coaching session updated",
		slog.String("sessionID", session.ID),
		slog.String("status", string(to)),
	)
	return session, nil
}

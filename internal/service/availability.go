package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/barberhub/booking-service/internal/database/postgres"
	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/pkg/clock"
)

// committedStatuses — статусы, занимающие окно мастера. Отклонённые и
// отменённые визиты слот не держат.
var committedStatuses = []entity.BookingStatus{
	entity.BookingStatusPending,
	entity.BookingStatusApproved,
}

const slotStepMinutes = 60

type availabilityService struct {
	bookingRepo repository.BookingRepository
	barberRepo  repository.BarberRepository
	clock       clock.Clock

	defaultWorkStart string
	defaultWorkEnd   string
	minLeadMinutes   int
}

// NewAvailabilityService создает новый экземпляр AvailabilityService
func NewAvailabilityService(
	bookingRepo repository.BookingRepository,
	barberRepo repository.BarberRepository,
	clk clock.Clock,
	defaultWorkStart, defaultWorkEnd string,
	minLeadMinutes int,
) AvailabilityService {
	if defaultWorkStart == "" {
		defaultWorkStart = "09:00"
	}
	if defaultWorkEnd == "" {
		defaultWorkEnd = "18:00"
	}
	if minLeadMinutes <= 0 {
		minLeadMinutes = 30
	}
	return &availabilityService{
		bookingRepo:      bookingRepo,
		barberRepo:       barberRepo,
		clock:            clk,
		defaultWorkStart: defaultWorkStart,
		defaultWorkEnd:   defaultWorkEnd,
		minLeadMinutes:   minLeadMinutes,
	}
}

// IsAvailable проверяет, свободно ли у мастера окно [start, start+duration).
func (s *availabilityService) IsAvailable(ctx context.Context, barberID int64, date, startTime string, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, fmt.Errorf("%w: duration must be positive", entity.ErrInvalidInput)
	}

	start, err := entity.LocalStart(date, startTime, s.clock.Location())
	if err != nil {
		return false, err
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	existing, err := s.bookingRepo.GetByBarberAndDate(ctx, barberID, date, committedStatuses)
	if err != nil {
		return false, fmt.Errorf("ошибка при загрузке занятости мастера: %w", err)
	}

	for _, b := range existing {
		// Каждая строка группы хранит интервал всего визита,
		// поэтому достаточно проверки по строкам.
		if start.Before(b.EndAt) && b.StartAt.Before(end) {
			return false, nil
		}
	}

	return true, nil
}

// AvailableSlots перечисляет свободные начала слотов по часовой сетке
// рабочего дня мастера для запрошенной суммарной длительности.
func (s *availabilityService) AvailableSlots(ctx context.Context, barberID int64, date string, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", entity.ErrInvalidInput)
	}

	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, err
	}

	barber, err := s.barberRepo.GetByID(ctx, barberID)
	if err != nil {
		return nil, err
	}

	workStart, workEnd := barber.WorkStart, barber.WorkEnd
	if workStart == "" || workEnd == "" {
		workStart, workEnd = s.defaultWorkStart, s.defaultWorkEnd
	}

	startMins, err := entity.ParseClock(workStart)
	if err != nil {
		return nil, err
	}
	endMins, err := entity.ParseClock(workEnd)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookingRepo.GetByBarberAndDate(ctx, barberID, date, committedStatuses)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке занятости мастера: %w", err)
	}

	now := s.clock.Now()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.clock.Location())
	isToday := now.Format(entity.DateLayout) == date

	// Ближе, чем minLead до начала, слоты на сегодня не предлагаем
	cutoff := now.Add(time.Duration(s.minLeadMinutes) * time.Minute)

	var slots []string
	for mins := startMins; mins+durationMinutes <= endMins; mins += slotStepMinutes {
		slotStart := midnight.Add(time.Duration(mins) * time.Minute)
		slotEnd := slotStart.Add(time.Duration(durationMinutes) * time.Minute)

		if isToday && slotStart.Before(cutoff) {
			continue
		}

		conflict := false
		for _, b := range existing {
			if slotStart.Before(b.EndAt) && b.StartAt.Before(slotEnd) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		slots = append(slots, fmt.Sprintf("%02d:%02d", mins/60, mins%60))
	}

	return slots, nil
}

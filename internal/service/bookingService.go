package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/barberhub/booking-service/internal/database/postgres"
	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/pkg/clock"
	"github.com/barberhub/booking-service/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

// Константы типов задач
const (
	TaskTypeStatusNotification = "status_notification"
)

type bookingService struct {
	bookingRepo  repository.BookingRepository
	serviceRepo  repository.ServiceRepository
	barberRepo   repository.BarberRepository
	clientRepo   repository.ClientRepository
	availability AvailabilityService
	clock        clock.Clock
	queue        TaskPublisher
	events       EventPublisher
}

// NewBookingService создает новый экземпляр BookingService
func NewBookingService(
	bookingRepo repository.BookingRepository,
	serviceRepo repository.ServiceRepository,
	barberRepo repository.BarberRepository,
	clientRepo repository.ClientRepository,
	availability AvailabilityService,
	clk clock.Clock,
	queue TaskPublisher,
	events EventPublisher,
) BookingService {
	return &bookingService{
		bookingRepo:  bookingRepo,
		serviceRepo:  serviceRepo,
		barberRepo:   barberRepo,
		clientRepo:   clientRepo,
		availability: availability,
		clock:        clk,
		queue:        queue,
		events:       events,
	}
}

// CreateBooking создает группу бронирований: по строке на каждую услугу,
// все с общими client_id/barber_id/date/time и общим end_at.
func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) ([]*entity.Booking, error) {
	if len(req.ServiceIDs) == 0 {
		return nil, fmt.Errorf("%w: empty service list", entity.ErrInvalidInput)
	}

	start, err := entity.LocalStart(req.Date, req.Time, s.clock.Location())
	if err != nil {
		return nil, err
	}
	if start.Before(s.clock.Now()) {
		return nil, fmt.Errorf("%w: booking time is in the past", entity.ErrInvalidInput)
	}

	// Валидация мастера
	barber, err := s.barberRepo.GetByID(ctx, req.BarberID)
	if err != nil {
		return nil, err
	}

	client, err := s.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}

	services, err := s.serviceRepo.GetByIDs(ctx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	totalDuration := 0
	for _, svc := range services {
		totalDuration += svc.DurationMinutes
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("%w: total duration must be positive", entity.ErrInvalidInput)
	}

	available, err := s.availability.IsAvailable(ctx, req.BarberID, req.Date, req.Time, totalDuration)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, entity.ErrSlotTaken
	}

	end := start.Add(time.Duration(totalDuration) * time.Minute)

	bookings := make([]*entity.Booking, 0, len(services))
	for _, svc := range services {
		bookings = append(bookings, &entity.Booking{
			ClientID:  client.ID,
			BarberID:  barber.ID,
			ServiceID: svc.ID,
			Date:      req.Date,
			Time:      req.Time,
			StartAt:   start,
			EndAt:     end,
			Status:    entity.BookingStatusPending,
		})
	}

	// Проверка внутри CreateGroup повторяется в serializable-транзакции,
	// закрывая гонку между конкурентными запросами на один слот.
	if err := s.bookingRepo.CreateGroup(ctx, bookings); err != nil {
		return nil, err
	}

	logrus.Infof("Визит создан: клиент=%d, мастер=%d, %s %s, услуг=%d",
		client.ID, barber.ID, req.Date, req.Time, len(bookings))

	s.enqueueStatusNotification(ctx, bookings[0], entity.BookingStatusPending)
	s.publishEvent(ctx, rabbitmq.RoutingBookingCreated, bookings)

	return bookings, nil
}

// resolveClient находит или создает клиента по данным запроса
func (s *bookingService) resolveClient(ctx context.Context, req *CreateBookingRequest) (*entity.Client, error) {
	if req.ClientID > 0 {
		return s.clientRepo.GetByID(ctx, req.ClientID)
	}

	if req.ClientPhone == "" || req.ClientName == "" {
		return nil, fmt.Errorf("%w: client_id or client name and phone required", entity.ErrInvalidInput)
	}

	client, err := s.clientRepo.GetByPhone(ctx, req.ClientPhone)
	if err == nil {
		return client, nil
	}
	if err != entity.ErrClientNotFound {
		return nil, err
	}

	client = &entity.Client{
		Name:       req.ClientName,
		Phone:      req.ClientPhone,
		TelegramID: req.ClientTelegramID,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// TransitionStatus переводит всю группу в новый статус по таблице переходов.
// Недопустимый переход отклоняется без каких-либо изменений.
func (s *bookingService) TransitionStatus(ctx context.Context, key entity.GroupKey, newStatus entity.BookingStatus) ([]*entity.Booking, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidInput, newStatus)
	}

	group, err := s.bookingRepo.GetGroup(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		return nil, entity.ErrBookingNotFound
	}

	current := group[0].Status
	if !current.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, current, newStatus)
	}

	// Все строки группы обновляются одним запросом
	if _, err := s.bookingRepo.UpdateGroupStatus(ctx, key, newStatus); err != nil {
		return nil, err
	}

	for _, b := range group {
		b.Status = newStatus
	}

	logrus.Infof("Визит %s: статус %s -> %s", key, current, newStatus)

	s.enqueueStatusNotification(ctx, group[0], newStatus)
	s.publishEvent(ctx, rabbitmq.RoutingStatusChanged, map[string]interface{}{
		"group_key": key,
		"status":    newStatus,
	})

	return group, nil
}

// TransitionStatusByBookingID разрешает группу по id любой её строки
func (s *bookingService) TransitionStatusByBookingID(ctx context.Context, bookingID int64, newStatus entity.BookingStatus) ([]*entity.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return s.TransitionStatus(ctx, booking.GroupKey(), newStatus)
}

// SetComment прикрепляет отзыв к завершенному визиту
func (s *bookingService) SetComment(ctx context.Context, bookingID int64, text string) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.Status != entity.BookingStatusCompleted {
		return entity.ErrCommentNotAllowed
	}

	return s.bookingRepo.SetComment(ctx, bookingID, text)
}

// GetBooking возвращает строку бронирования по ID
func (s *bookingService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetVisit возвращает группу строки вместе с данными каталога
func (s *bookingService) GetVisit(ctx context.Context, bookingID int64) (*VisitDetails, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	group, err := s.bookingRepo.GetGroup(ctx, booking.GroupKey())
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetByID(ctx, booking.ClientID)
	if err != nil {
		return nil, err
	}

	barber, err := s.barberRepo.GetByID(ctx, booking.BarberID)
	if err != nil {
		return nil, err
	}

	serviceIDs := make([]int64, 0, len(group))
	for _, b := range group {
		serviceIDs = append(serviceIDs, b.ServiceID)
	}
	services, err := s.serviceRepo.GetByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}

	details := &VisitDetails{
		Bookings: group,
		Client:   client,
		Barber:   barber,
		Services: services,
	}
	for _, svc := range services {
		details.TotalPrice += svc.Price
		details.DurationMinutes += svc.DurationMinutes
	}

	return details, nil
}

// GetClientBookings возвращает все визиты клиента
func (s *bookingService) GetClientBookings(ctx context.Context, clientID int64) ([]*entity.Booking, error) {
	bookings, err := s.bookingRepo.GetByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении визитов клиента: %w", err)
	}
	return bookings, nil
}

// GetBookingsByStatus возвращает визиты по статусу
func (s *bookingService) GetBookingsByStatus(ctx context.Context, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidInput, status)
	}
	return s.bookingRepo.GetByStatus(ctx, status, limit, offset)
}

// GetAllBookings возвращает все визиты с пагинацией
func (s *bookingService) GetAllBookings(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.bookingRepo.GetAll(ctx, limit, offset)
}

// DeleteGroupByBookingID удаляет весь визит целиком. Удаление одиночной
// строки из группы не поддерживается.
func (s *bookingService) DeleteGroupByBookingID(ctx context.Context, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	key := booking.GroupKey()
	deleted, err := s.bookingRepo.DeleteGroup(ctx, key)
	if err != nil {
		return err
	}

	logrus.Infof("Визит %s удален (%d строк)", key, deleted)

	s.publishEvent(ctx, rabbitmq.RoutingGroupDeleted, map[string]interface{}{
		"group_key": key,
	})

	return nil
}

// GetBookingStats возвращает статистику по визитам
func (s *bookingService) GetBookingStats(ctx context.Context) (*BookingStats, error) {
	byStatus, err := s.bookingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	byBarber, err := s.bookingRepo.CountByBarber(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BookingStats{
		BookingsByStatus: byStatus,
		BookingsByBarber: byBarber,
	}
	for _, count := range byStatus {
		stats.TotalBookings += count
	}

	return stats, nil
}

// enqueueStatusNotification планирует уведомление об изменении статуса.
// Очередь может быть не сконфигурирована; это не ошибка бизнес-операции.
func (s *bookingService) enqueueStatusNotification(ctx context.Context, booking *entity.Booking, status entity.BookingStatus) {
	if s.queue == nil {
		return
	}

	task := &Task{
		ID:   fmt.Sprintf("status_%d_%d", booking.ID, time.Now().UnixNano()),
		Type: TaskTypeStatusNotification,
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"status":     string(status),
		},
		ExecuteAt:  time.Now().Add(2 * time.Second),
		MaxRetries: 3,
	}

	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.Errorf("Ошибка при планировании уведомления о статусе: %v", err)
	}
}

// publishEvent публикует событие жизненного цикла, если брокер подключен
func (s *bookingService) publishEvent(ctx context.Context, routingKey string, payload any) {
	if s.events == nil {
		return
	}

	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		logrus.Errorf("Ошибка при публикации события %s: %v", routingKey, err)
	}
}

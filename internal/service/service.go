package service

import (
	"context"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
)

// AvailabilityService решает, свободно ли у мастера непрерывное окно, и
// перечисляет свободные слоты. Чистые функции над текущим состоянием
// хранилища, без побочных эффектов.
type AvailabilityService interface {
	IsAvailable(ctx context.Context, barberID int64, date, startTime string, durationMinutes int) (bool, error)
	AvailableSlots(ctx context.Context, barberID int64, date string, durationMinutes int) ([]string, error)
}

// BookingService определяет интерфейс жизненного цикла визитов
type BookingService interface {
	// Основные операции
	CreateBooking(ctx context.Context, req *CreateBookingRequest) ([]*entity.Booking, error)
	TransitionStatus(ctx context.Context, key entity.GroupKey, newStatus entity.BookingStatus) ([]*entity.Booking, error)
	TransitionStatusByBookingID(ctx context.Context, bookingID int64, newStatus entity.BookingStatus) ([]*entity.Booking, error)
	SetComment(ctx context.Context, bookingID int64, text string) error

	// Чтение
	GetBooking(ctx context.Context, id int64) (*entity.Booking, error)
	GetVisit(ctx context.Context, bookingID int64) (*VisitDetails, error)
	GetClientBookings(ctx context.Context, clientID int64) ([]*entity.Booking, error)
	GetBookingsByStatus(ctx context.Context, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	GetAllBookings(ctx context.Context, limit, offset int) ([]*entity.Booking, error)

	// Административные операции
	DeleteGroupByBookingID(ctx context.Context, bookingID int64) error
	GetBookingStats(ctx context.Context) (*BookingStats, error)
}

// CatalogService — чтение каталога и регистрация клиентов
type CatalogService interface {
	GetServices(ctx context.Context) ([]*entity.Service, error)
	GetServicesByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error)
	GetBarbers(ctx context.Context) ([]*entity.Barber, error)
	RegisterClient(ctx context.Context, req *RegisterClientRequest) (*entity.Client, error)
}

// Notifier — непрозрачный канал исходящих сообщений. Сервисы никогда не
// заглядывают в транспортные детали.
type Notifier interface {
	Send(ctx context.Context, recipientID, text string) error
	SendPhoto(ctx context.Context, recipientID, photoURL, caption string) error
}

// EventPublisher публикует события жизненного цикла для внешних потребителей
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// CreateBookingRequest представляет данные для создания визита.
// Либо client_id существующего клиента, либо имя+телефон нового.
type CreateBookingRequest struct {
	ClientID         int64   `json:"client_id"`
	ClientName       string  `json:"client_name"`
	ClientPhone      string  `json:"client_phone"`
	ClientTelegramID string  `json:"client_telegram_id"`
	BarberID         int64   `json:"barber_id" binding:"required"`
	ServiceIDs       []int64 `json:"service_ids" binding:"required,min=1"`
	Date             string  `json:"date" binding:"required"`
	Time             string  `json:"time" binding:"required"`
}

// RegisterClientRequest представляет данные для регистрации клиента
type RegisterClientRequest struct {
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	TelegramID string `json:"telegram_id"`
}

// VisitDetails — строки группы вместе с каталожными данными визита
type VisitDetails struct {
	Bookings        []*entity.Booking `json:"bookings"`
	Client          *entity.Client    `json:"client"`
	Barber          *entity.Barber    `json:"barber"`
	Services        []*entity.Service `json:"services"`
	TotalPrice      float64           `json:"total_price"`
	DurationMinutes int               `json:"duration_minutes"`
}

// BookingStats представляет статистику по визитам
type BookingStats struct {
	TotalBookings    int64                          `json:"total_bookings"`
	BookingsByStatus map[entity.BookingStatus]int64 `json:"bookings_by_status"`
	BookingsByBarber map[int64]int64                `json:"bookings_by_barber"`
}

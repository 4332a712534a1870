package repository

import (
	"context"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
)

type BookingRepository interface {
	// Group lifecycle
	CreateGroup(ctx context.Context, bookings []*entity.Booking) error
	GetGroup(ctx context.Context, key entity.GroupKey) ([]*entity.Booking, error)
	UpdateGroupStatus(ctx context.Context, key entity.GroupKey, status entity.BookingStatus) (int64, error)
	SetGroupFlag(ctx context.Context, key entity.GroupKey, flag entity.ReminderFlag) error
	DeleteGroup(ctx context.Context, key entity.GroupKey) (int64, error)

	// Row operations
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	SetComment(ctx context.Context, id int64, text string) error

	// Query operations
	GetByBarberAndDate(ctx context.Context, barberID int64, date string, statuses []entity.BookingStatus) ([]*entity.Booking, error)
	GetByClient(ctx context.Context, clientID int64) ([]*entity.Booking, error)
	GetByStatus(ctx context.Context, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	GetAll(ctx context.Context, limit, offset int) ([]*entity.Booking, error)

	// Scheduler queries
	GetRemindersDue(ctx context.Context, flag entity.ReminderFlag, from, to time.Time) ([]*entity.Booking, error)
	GetFinishedUnnotified(ctx context.Context, before time.Time) ([]*entity.Booking, error)

	// Statistical operations
	CountByStatus(ctx context.Context) (map[entity.BookingStatus]int64, error)
	CountByBarber(ctx context.Context) (map[int64]int64, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, service *entity.Service) error
	GetByID(ctx context.Context, id int64) (*entity.Service, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error)
	GetAll(ctx context.Context) ([]*entity.Service, error)
}

type BarberRepository interface {
	Create(ctx context.Context, barber *entity.Barber) error
	GetByID(ctx context.Context, id int64) (*entity.Barber, error)
	GetAll(ctx context.Context) ([]*entity.Barber, error)
}

type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
	GetByPhone(ctx context.Context, phone string) (*entity.Client, error)
}

type StaffRepository interface {
	Create(ctx context.Context, staff *entity.Staff) error
	GetAll(ctx context.Context) ([]*entity.Staff, error)
}

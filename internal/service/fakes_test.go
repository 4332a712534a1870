package service

import (
	"context"
	"sync"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
)

// Фейки хранилищ для тестов сервисного слоя: вся занятость живет в памяти,
// без Postgres.

type fixedClock struct {
	now time.Time
	loc *time.Location
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Location() *time.Location { return c.loc }

type fakeBookingRepo struct {
	mu     sync.Mutex
	rows   []*entity.Booking
	nextID int64

	failCreate error
}

func (r *fakeBookingRepo) CreateGroup(_ context.Context, bookings []*entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}

	for _, b := range bookings {
		r.nextID++
		b.ID = r.nextID
		if b.CreatedAt.IsZero() {
			b.CreatedAt = time.Now()
		}
		r.rows = append(r.rows, b)
	}
	return nil
}

func (r *fakeBookingRepo) GetGroup(_ context.Context, key entity.GroupKey) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var group []*entity.Booking
	for _, b := range r.rows {
		if b.GroupKey() == key {
			group = append(group, b)
		}
	}
	return group, nil
}

func (r *fakeBookingRepo) UpdateGroupStatus(_ context.Context, key entity.GroupKey, status entity.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, b := range r.rows {
		if b.GroupKey() == key {
			b.Status = status
			updated++
		}
	}
	return updated, nil
}

func (r *fakeBookingRepo) SetGroupFlag(_ context.Context, key entity.GroupKey, flag entity.ReminderFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.rows {
		if b.GroupKey() == key {
			setFlag(b, flag)
		}
	}
	return nil
}

func (r *fakeBookingRepo) DeleteGroup(_ context.Context, key entity.GroupKey) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*entity.Booking
	var deleted int64
	for _, b := range r.rows {
		if b.GroupKey() == key {
			deleted++
			continue
		}
		kept = append(kept, b)
	}
	r.rows = kept
	return deleted, nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.rows {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *fakeBookingRepo) SetComment(_ context.Context, id int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.rows {
		if b.ID == id {
			b.Comment = text
			return nil
		}
	}
	return entity.ErrBookingNotFound
}

func (r *fakeBookingRepo) GetByBarberAndDate(_ context.Context, barberID int64, date string, statuses []entity.BookingStatus) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.rows {
		if b.BarberID != barberID || b.Date != date {
			continue
		}
		for _, st := range statuses {
			if b.Status == st {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetByClient(_ context.Context, clientID int64) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.rows {
		if b.ClientID == clientID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetByStatus(_ context.Context, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.rows {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *fakeBookingRepo) GetAll(_ context.Context, limit, offset int) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return paginate(r.rows, limit, offset), nil
}

func (r *fakeBookingRepo) GetRemindersDue(_ context.Context, flag entity.ReminderFlag, from, to time.Time) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.rows {
		if b.Status != entity.BookingStatusApproved || b.FlagSet(flag) {
			continue
		}
		if b.StartAt.Before(from) || b.StartAt.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookingRepo) GetFinishedUnnotified(_ context.Context, before time.Time) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.rows {
		if b.Status != entity.BookingStatusApproved || b.CompletionNotificationSent {
			continue
		}
		if b.EndAt.After(before) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[entity.BookingStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[entity.BookingStatus]int64)
	for _, b := range r.rows {
		out[b.Status]++
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByBarber(_ context.Context) (map[int64]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int64]int64)
	for _, b := range r.rows {
		out[b.BarberID]++
	}
	return out, nil
}

func setFlag(b *entity.Booking, flag entity.ReminderFlag) {
	switch flag {
	case entity.FlagReminder1Day:
		b.Reminder1DaySent = true
	case entity.FlagReminder3Hours:
		b.Reminder3HoursSent = true
	case entity.FlagReminder1Hour:
		b.Reminder1HourSent = true
	case entity.FlagReminder30Min:
		b.NotificationSent = true
	case entity.FlagCompletion:
		b.CompletionNotificationSent = true
	}
}

func paginate(rows []*entity.Booking, limit, offset int) []*entity.Booking {
	if offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

type fakeServiceRepo struct {
	services map[int64]*entity.Service
}

func (r *fakeServiceRepo) Create(_ context.Context, svc *entity.Service) error {
	r.services[svc.ID] = svc
	return nil
}

func (r *fakeServiceRepo) GetByID(_ context.Context, id int64) (*entity.Service, error) {
	if svc, ok := r.services[id]; ok {
		return svc, nil
	}
	return nil, entity.ErrServiceNotFound
}

func (r *fakeServiceRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error) {
	out := make([]*entity.Service, 0, len(ids))
	for _, id := range ids {
		svc, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, nil
}

func (r *fakeServiceRepo) GetAll(_ context.Context) ([]*entity.Service, error) {
	out := make([]*entity.Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out, nil
}

type fakeBarberRepo struct {
	barbers map[int64]*entity.Barber
}

func (r *fakeBarberRepo) Create(_ context.Context, barber *entity.Barber) error {
	r.barbers[barber.ID] = barber
	return nil
}

func (r *fakeBarberRepo) GetByID(_ context.Context, id int64) (*entity.Barber, error) {
	if barber, ok := r.barbers[id]; ok {
		return barber, nil
	}
	return nil, entity.ErrBarberNotFound
}

func (r *fakeBarberRepo) GetAll(_ context.Context) ([]*entity.Barber, error) {
	out := make([]*entity.Barber, 0, len(r.barbers))
	for _, barber := range r.barbers {
		out = append(out, barber)
	}
	return out, nil
}

type fakeClientRepo struct {
	clients map[int64]*entity.Client
	nextID  int64
}

func (r *fakeClientRepo) Create(_ context.Context, client *entity.Client) error {
	for _, existing := range r.clients {
		if existing.Phone == client.Phone {
			return entity.ErrClientExists
		}
	}
	r.nextID++
	client.ID = r.nextID
	r.clients[client.ID] = client
	return nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int64) (*entity.Client, error) {
	if client, ok := r.clients[id]; ok {
		return client, nil
	}
	return nil, entity.ErrClientNotFound
}

func (r *fakeClientRepo) GetByPhone(_ context.Context, phone string) (*entity.Client, error) {
	for _, client := range r.clients {
		if client.Phone == phone {
			return client, nil
		}
	}
	return nil, entity.ErrClientNotFound
}

type fakeTaskPublisher struct {
	tasks []*Task
}

func (p *fakeTaskPublisher) Publish(_ context.Context, task *Task) error {
	p.tasks = append(p.tasks, task)
	return nil
}

type fakeEventPublisher struct {
	routingKeys []string
}

func (p *fakeEventPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/pkg/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Фейки хранилищ и нотификатора: воркер гоняется по памяти, без внешних
// систем.

type fixedClock struct {
	now time.Time
	loc *time.Location
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Location() *time.Location { return c.loc }

type memBookingRepo struct {
	rows []*entity.Booking

	flagged []string // "key/flag", в порядке проставления
}

func (r *memBookingRepo) CreateGroup(context.Context, []*entity.Booking) error { return nil }

func (r *memBookingRepo) GetGroup(_ context.Context, key entity.GroupKey) ([]*entity.Booking, error) {
	var out []*entity.Booking
	for _, b := range r.rows {
		if b.GroupKey() == key {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) UpdateGroupStatus(_ context.Context, key entity.GroupKey, status entity.BookingStatus) (int64, error) {
	var n int64
	for _, b := range r.rows {
		if b.GroupKey() == key {
			b.Status = status
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) SetGroupFlag(_ context.Context, key entity.GroupKey, flag entity.ReminderFlag) error {
	for _, b := range r.rows {
		if b.GroupKey() != key {
			continue
		}
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
	r.flagged = append(r.flagged, fmt.Sprintf("%s/%s", key, flag))
	return nil
}

func (r *memBookingRepo) DeleteGroup(context.Context, entity.GroupKey) (int64, error) {
	return 0, nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	for _, b := range r.rows {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *memBookingRepo) SetComment(context.Context, int64, string) error { return nil }

func (r *memBookingRepo) GetByBarberAndDate(context.Context, int64, string, []entity.BookingStatus) ([]*entity.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) GetByClient(context.Context, int64) ([]*entity.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) GetByStatus(context.Context, entity.BookingStatus, int, int) ([]*entity.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) GetAll(context.Context, int, int) ([]*entity.Booking, error) {
	return nil, nil
}

func (r *memBookingRepo) GetRemindersDue(_ context.Context, flag entity.ReminderFlag, from, to time.Time) ([]*entity.Booking, error) {
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

func (r *memBookingRepo) GetFinishedUnnotified(_ context.Context, before time.Time) ([]*entity.Booking, error) {
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

func (r *memBookingRepo) CountByStatus(context.Context) (map[entity.BookingStatus]int64, error) {
	return nil, nil
}

func (r *memBookingRepo) CountByBarber(context.Context) (map[int64]int64, error) {
	return nil, nil
}

type memClientRepo struct{ clients map[int64]*entity.Client }

func (r *memClientRepo) Create(context.Context, *entity.Client) error { return nil }

func (r *memClientRepo) GetByID(_ context.Context, id int64) (*entity.Client, error) {
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, entity.ErrClientNotFound
}

func (r *memClientRepo) GetByPhone(context.Context, string) (*entity.Client, error) {
	return nil, entity.ErrClientNotFound
}

type memBarberRepo struct{ barbers map[int64]*entity.Barber }

func (r *memBarberRepo) Create(context.Context, *entity.Barber) error { return nil }

func (r *memBarberRepo) GetByID(_ context.Context, id int64) (*entity.Barber, error) {
	if b, ok := r.barbers[id]; ok {
		return b, nil
	}
	return nil, entity.ErrBarberNotFound
}

func (r *memBarberRepo) GetAll(context.Context) ([]*entity.Barber, error) { return nil, nil }

type memServiceRepo struct{ services map[int64]*entity.Service }

func (r *memServiceRepo) Create(context.Context, *entity.Service) error { return nil }

func (r *memServiceRepo) GetByID(_ context.Context, id int64) (*entity.Service, error) {
	if s, ok := r.services[id]; ok {
		return s, nil
	}
	return nil, entity.ErrServiceNotFound
}

func (r *memServiceRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error) {
	out := make([]*entity.Service, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memServiceRepo) GetAll(context.Context) ([]*entity.Service, error) { return nil, nil }

type memStaffRepo struct{ staff []*entity.Staff }

func (r *memStaffRepo) Create(context.Context, *entity.Staff) error { return nil }

func (r *memStaffRepo) GetAll(context.Context) ([]*entity.Staff, error) { return r.staff, nil }

// recordingNotifier записывает отправки и позволяет назначить ошибку
// на конкретного получателя
type recordingNotifier struct {
	sent     []string // получатели в порядке отправки
	failWith map[string]error
}

func (n *recordingNotifier) Send(_ context.Context, recipientID, _ string) error {
	n.sent = append(n.sent, recipientID)
	if err, ok := n.failWith[recipientID]; ok {
		return err
	}
	return nil
}

func (n *recordingNotifier) SendPhoto(context.Context, string, string, string) error { return nil }

type workerFixture struct {
	worker   *NotifyWorker
	repo     *memBookingRepo
	notifier *recordingNotifier
	clk      *fixedClock
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	clk := &fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, loc), loc: loc}
	repo := &memBookingRepo{}
	notifier := &recordingNotifier{failWith: map[string]error{}}

	clientRepo := &memClientRepo{clients: map[int64]*entity.Client{
		100: {ID: 100, Name: "Иван", Phone: "+79990001122", TelegramID: "client-100"},
		101: {ID: 101, Name: "Олег", Phone: "+79990003344", TelegramID: ""},
	}}
	barberRepo := &memBarberRepo{barbers: map[int64]*entity.Barber{
		1: {ID: 1, Name: "Сергей", TelegramID: "barber-1"},
	}}
	serviceRepo := &memServiceRepo{services: map[int64]*entity.Service{
		1: {ID: 1, Name: "Стрижка", DurationMinutes: 30},
		2: {ID: 2, Name: "Укладка", DurationMinutes: 15},
	}}
	staffRepo := &memStaffRepo{staff: []*entity.Staff{
		{ID: 1, Name: "Администратор", TelegramID: "staff-1"},
		{ID: 2, Name: "Стажер", TelegramID: ""},
	}}

	w := NewNotifyWorker(repo, clientRepo, barberRepo, serviceRepo, staffRepo,
		notifier, clk, time.Second)

	return &workerFixture{worker: w, repo: repo, notifier: notifier, clk: clk}
}

// addVisit добавляет группу из двух строк, стартующую через delta от "сейчас"
func (f *workerFixture) addVisit(clientID int64, startDelta time.Duration, status entity.BookingStatus) entity.GroupKey {
	start := f.clk.now.Add(startDelta)
	end := start.Add(45 * time.Minute)
	date := start.Format(entity.DateLayout)
	timeOfDay := start.Format(entity.TimeLayout)

	base := int64(len(f.repo.rows))
	for i, serviceID := range []int64{1, 2} {
		f.repo.rows = append(f.repo.rows, &entity.Booking{
			ID:        base + int64(i) + 1,
			ClientID:  clientID,
			BarberID:  1,
			ServiceID: serviceID,
			Date:      date,
			Time:      timeOfDay,
			StartAt:   start,
			EndAt:     end,
			Status:    status,
		})
	}
	return entity.GroupKey{ClientID: clientID, BarberID: 1, Date: date, Time: timeOfDay}
}

// TestReminderWindows тестирует попадание в пороговые окна
func TestReminderWindows(t *testing.T) {
	tests := []struct {
		name       string
		startDelta time.Duration
		wantFlag   entity.ReminderFlag
		wantSend   bool
	}{
		{name: "24 hours ahead", startDelta: 24 * time.Hour, wantFlag: entity.FlagReminder1Day, wantSend: true},
		{name: "lower bound of day window", startDelta: 23 * time.Hour, wantFlag: entity.FlagReminder1Day, wantSend: true},
		{name: "upper bound of day window", startDelta: 25 * time.Hour, wantFlag: entity.FlagReminder1Day, wantSend: true},
		{name: "just above day window", startDelta: 25*time.Hour + time.Minute, wantSend: false},
		{name: "3 hours ahead", startDelta: 180 * time.Minute, wantFlag: entity.FlagReminder3Hours, wantSend: true},
		{name: "1 hour ahead", startDelta: 60 * time.Minute, wantFlag: entity.FlagReminder1Hour, wantSend: true},
		{name: "30 minutes ahead", startDelta: 30 * time.Minute, wantFlag: entity.FlagReminder30Min, wantSend: true},
		{name: "20 minutes ahead misses every window", startDelta: 20 * time.Minute, wantSend: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkerFixture(t)
			key := f.addVisit(100, tt.startDelta, entity.BookingStatusApproved)

			require.NoError(t, f.worker.RunPass(context.Background()))

			if !tt.wantSend {
				assert.Empty(t, f.notifier.sent)
				assert.Empty(t, f.repo.flagged)
				return
			}

			assert.Equal(t, []string{"client-100"}, f.notifier.sent, "одно напоминание на группу")
			assert.Equal(t, []string{fmt.Sprintf("%s/%s", key, tt.wantFlag)}, f.repo.flagged)
		})
	}
}

// TestReminderIdempotence тестирует, что повторный проход не дублирует отправку
func TestReminderIdempotence(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, 24*time.Hour, entity.BookingStatusApproved)

	require.NoError(t, f.worker.RunPass(context.Background()))
	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Equal(t, []string{"client-100"}, f.notifier.sent, "флаг гасит повторную отправку")
	assert.Len(t, f.repo.flagged, 1)
}

// TestReminderSkipsPending тестирует, что неподтвержденные визиты не напоминаются
func TestReminderSkipsPending(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, 24*time.Hour, entity.BookingStatusPending)

	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Empty(t, f.notifier.sent)
}

// TestReminderTransientFailureRetries тестирует, что временный сбой
// оставляет флаг снятым до следующего прохода
func TestReminderTransientFailureRetries(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, 24*time.Hour, entity.BookingStatusApproved)
	f.notifier.failWith["client-100"] = errors.New("телеграм временно недоступен")

	require.NoError(t, f.worker.RunPass(context.Background()))
	assert.Empty(t, f.repo.flagged, "временный сбой не фиксирует флаг")

	// Сеть восстановилась — следующий проход досылает
	delete(f.notifier.failWith, "client-100")
	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Equal(t, []string{"client-100", "client-100"}, f.notifier.sent)
	assert.Len(t, f.repo.flagged, 1)
}

// TestReminderUnreachableSetsFlag тестирует, что недостижимый получатель
// не зацикливает группу
func TestReminderUnreachableSetsFlag(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, 24*time.Hour, entity.BookingStatusApproved)
	f.notifier.failWith["client-100"] = fmt.Errorf("%w: bot was blocked by the user", telegram.ErrUnreachable)

	require.NoError(t, f.worker.RunPass(context.Background()))
	assert.Len(t, f.repo.flagged, 1, "постоянный отказ фиксируется флагом")

	require.NoError(t, f.worker.RunPass(context.Background()))
	assert.Len(t, f.notifier.sent, 1, "повторной отправки нет")
}

// TestReminderClientWithoutTelegram тестирует группу без адресата
func TestReminderClientWithoutTelegram(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(101, 24*time.Hour, entity.BookingStatusApproved)

	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Empty(t, f.notifier.sent)
	assert.Len(t, f.repo.flagged, 1, "группа без адресата не пересканируется")
}

// TestCompletionSweep тестирует уведомление о завершившемся визите
func TestCompletionSweep(t *testing.T) {
	f := newWorkerFixture(t)
	key := f.addVisit(100, -2*time.Hour, entity.BookingStatusApproved) // end_at уже в прошлом

	require.NoError(t, f.worker.RunPass(context.Background()))

	// Мастер и сотрудники с Telegram; клиент не уведомляется
	assert.Equal(t, []string{"barber-1", "staff-1"}, f.notifier.sent)
	assert.Equal(t, []string{fmt.Sprintf("%s/%s", key, entity.FlagCompletion)}, f.repo.flagged)

	require.NoError(t, f.worker.RunPass(context.Background()))
	assert.Len(t, f.notifier.sent, 2, "завершение уведомляется однократно")
}

// TestCompletionNotDueYet тестирует, что идущий визит не считается завершенным
func TestCompletionNotDueYet(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, -30*time.Minute, entity.BookingStatusApproved) // закончится через 15 минут

	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Empty(t, f.notifier.sent)
}

// TestCompletionPartialDelivery тестирует флаг при частичной доставке
func TestCompletionPartialDelivery(t *testing.T) {
	f := newWorkerFixture(t)
	f.addVisit(100, -2*time.Hour, entity.BookingStatusApproved)
	f.notifier.failWith["staff-1"] = errors.New("временный сбой")

	require.NoError(t, f.worker.RunPass(context.Background()))

	// Мастеру доставлено — группа закрывается, несмотря на сбой по сотруднику
	assert.Len(t, f.repo.flagged, 1)
}

// TestFailureIsolation тестирует, что сбой одной группы не мешает другим
func TestFailureIsolation(t *testing.T) {
	f := newWorkerFixture(t)

	// Клиент 999 не существует: loadVisit для его группы упадет
	f.addVisit(999, 24*time.Hour, entity.BookingStatusApproved)
	f.addVisit(100, 24*time.Hour, entity.BookingStatusApproved)

	require.NoError(t, f.worker.RunPass(context.Background()))

	assert.Equal(t, []string{"client-100"}, f.notifier.sent, "здоровая группа обработана")
	assert.Len(t, f.repo.flagged, 1)
}

package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	repository "github.com/barberhub/booking-service/internal/database/postgres"
	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/internal/service"
	"github.com/barberhub/booking-service/pkg/clock"
	"github.com/barberhub/booking-service/pkg/telegram"

	"github.com/sirupsen/logrus"
)

// reminderWindow описывает один порог напоминаний. Окно задается
// интервалом до начала визита и допускает дрейф тикера в обе стороны.
type reminderWindow struct {
	flag  entity.ReminderFlag
	min   time.Duration
	max   time.Duration
	label string
}

var reminderWindows = []reminderWindow{
	{entity.FlagReminder1Day, 23 * time.Hour, 25 * time.Hour, "завтра"},
	{entity.FlagReminder3Hours, 179 * time.Minute, 181 * time.Minute, "через 3 часа"},
	{entity.FlagReminder1Hour, 59 * time.Minute, 61 * time.Minute, "через 1 час"},
	{entity.FlagReminder30Min, 29 * time.Minute, 31 * time.Minute, "через 30 минут"},
}

// NotifyWorker рассылает напоминания о предстоящих визитах и служебные
// уведомления о завершившихся. Идемпотентность обеспечивают флаги на
// строках группы: флаг проставляется на всю группу одним запросом, и
// группа больше не попадает в выборку.
type NotifyWorker struct {
	bookingRepo repository.BookingRepository
	clientRepo  repository.ClientRepository
	barberRepo  repository.BarberRepository
	serviceRepo repository.ServiceRepository
	staffRepo   repository.StaffRepository
	notifier    service.Notifier
	clock       clock.Clock
	sendTimeout time.Duration
}

func NewNotifyWorker(
	bookingRepo repository.BookingRepository,
	clientRepo repository.ClientRepository,
	barberRepo repository.BarberRepository,
	serviceRepo repository.ServiceRepository,
	staffRepo repository.StaffRepository,
	notifier service.Notifier,
	clk clock.Clock,
	sendTimeout time.Duration,
) *NotifyWorker {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &NotifyWorker{
		bookingRepo: bookingRepo,
		clientRepo:  clientRepo,
		barberRepo:  barberRepo,
		serviceRepo: serviceRepo,
		staffRepo:   staffRepo,
		notifier:    notifier,
		clock:       clk,
		sendTimeout: sendTimeout,
	}
}

func (w *NotifyWorker) Name() string {
	return "booking-notify"
}

// RunPass выполняет один проход: четыре окна напоминаний и зачистку
// завершившихся визитов. Ошибка выборки прерывает проход; ошибка
// отправки по отдельной группе логируется и не мешает остальным.
func (w *NotifyWorker) RunPass(ctx context.Context) error {
	now := w.clock.Now()

	for _, window := range reminderWindows {
		if err := w.sweepReminders(ctx, now, window); err != nil {
			return fmt.Errorf("reminder sweep %s: %w", window.flag, err)
		}
	}

	if err := w.sweepCompletions(ctx, now); err != nil {
		return fmt.Errorf("completion sweep: %w", err)
	}

	return nil
}

// sweepReminders обрабатывает одно окно напоминаний
func (w *NotifyWorker) sweepReminders(ctx context.Context, now time.Time, window reminderWindow) error {
	due, err := w.bookingRepo.GetRemindersDue(ctx, window.flag, now.Add(window.min), now.Add(window.max))
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	groups := groupBookings(due)
	logrus.Infof("Окно %s: %d визитов к напоминанию", window.flag, len(groups))

	for _, group := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.remindGroup(ctx, group, window); err != nil {
			logrus.Errorf("Не удалось напомнить о визите %s: %v", group[0].GroupKey(), err)
		}
	}

	return nil
}

// remindGroup отправляет одно напоминание клиенту за всю группу
func (w *NotifyWorker) remindGroup(ctx context.Context, group []*entity.Booking, window reminderWindow) error {
	visit, err := w.loadVisit(ctx, group)
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"⏰ Напоминание о записи\n\n"+
			"Ваш визит %s, %s в %s.\n"+
			"Мастер: %s\n"+
			"Услуги: %s\n"+
			"Длительность: %d мин\n\n"+
			"Если планы изменились, пожалуйста, отмените запись.",
		window.label,
		visit.date, visit.timeOfDay,
		visit.barber.Name,
		visit.serviceList,
		visit.durationMinutes,
	)

	var recipients []string
	if visit.client.TelegramID != "" {
		recipients = append(recipients, visit.client.TelegramID)
	}

	return w.deliverAndFlag(ctx, group[0].GroupKey(), window.flag, recipients, message)
}

// sweepCompletions уведомляет мастера и персонал о завершившихся визитах
func (w *NotifyWorker) sweepCompletions(ctx context.Context, now time.Time) error {
	finished, err := w.bookingRepo.GetFinishedUnnotified(ctx, now)
	if err != nil {
		return err
	}
	if len(finished) == 0 {
		return nil
	}

	staff, err := w.staffRepo.GetAll(ctx)
	if err != nil {
		return err
	}

	groups := groupBookings(finished)
	logrus.Infof("Завершившихся визитов без уведомления: %d", len(groups))

	for _, group := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.notifyCompletion(ctx, group, staff); err != nil {
			logrus.Errorf("Не удалось уведомить о завершении визита %s: %v", group[0].GroupKey(), err)
		}
	}

	return nil
}

func (w *NotifyWorker) notifyCompletion(ctx context.Context, group []*entity.Booking, staff []*entity.Staff) error {
	visit, err := w.loadVisit(ctx, group)
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"🏁 Визит завершился\n\n"+
			"Клиент: %s (%s)\n"+
			"Мастер: %s\n"+
			"Дата: %s в %s\n"+
			"Услуги: %s\n\n"+
			"Не забудьте отметить визит как завершенный.",
		visit.client.Name, visit.client.Phone,
		visit.barber.Name,
		visit.date, visit.timeOfDay,
		visit.serviceList,
	)

	var recipients []string
	if visit.barber.TelegramID != "" {
		recipients = append(recipients, visit.barber.TelegramID)
	}
	for _, member := range staff {
		if member.TelegramID != "" {
			recipients = append(recipients, member.TelegramID)
		}
	}

	return w.deliverAndFlag(ctx, group[0].GroupKey(), entity.FlagCompletion, recipients, message)
}

// deliverAndFlag отправляет сообщение всем получателям и решает судьбу
// флага. Флаг проставляется, если хотя бы одна доставка удалась либо все
// неудачи постоянные (получатель недостижим). Временные сбои оставляют
// флаг снятым, и группа будет повторена на следующем проходе.
func (w *NotifyWorker) deliverAndFlag(ctx context.Context, key entity.GroupKey, flag entity.ReminderFlag, recipients []string, message string) error {
	delivered := 0
	transient := 0

	for _, recipient := range recipients {
		sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
		err := w.notifier.Send(sendCtx, recipient, message)
		cancel()

		switch {
		case err == nil:
			delivered++
		case telegram.IsUnreachable(err):
			logrus.Warnf("Получатель %s недостижим для визита %s: %v", recipient, key, err)
		default:
			transient++
			logrus.Errorf("Ошибка доставки получателю %s для визита %s: %v", recipient, key, err)
		}
	}

	if delivered == 0 && transient > 0 {
		return fmt.Errorf("доставка не удалась, %d временных сбоев, повтор на следующем проходе", transient)
	}

	if err := w.bookingRepo.SetGroupFlag(ctx, key, flag); err != nil {
		// Сообщение уже ушло; без флага группа будет переотправлена
		return fmt.Errorf("не удалось проставить флаг %s: %w", flag, err)
	}

	logrus.Infof("Визит %s: %s, доставлено %d/%d", key, flag, delivered, len(recipients))
	return nil
}

// visitSummary — данные визита, нужные для текста уведомления
type visitSummary struct {
	client          *entity.Client
	barber          *entity.Barber
	date            string
	timeOfDay       string
	serviceList     string
	durationMinutes int
}

func (w *NotifyWorker) loadVisit(ctx context.Context, group []*entity.Booking) (*visitSummary, error) {
	head := group[0]

	client, err := w.clientRepo.GetByID(ctx, head.ClientID)
	if err != nil {
		return nil, fmt.Errorf("client %d: %w", head.ClientID, err)
	}

	barber, err := w.barberRepo.GetByID(ctx, head.BarberID)
	if err != nil {
		return nil, fmt.Errorf("barber %d: %w", head.BarberID, err)
	}

	ids := make([]int64, 0, len(group))
	for _, b := range group {
		ids = append(ids, b.ServiceID)
	}
	services, err := w.serviceRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}

	names := make([]string, 0, len(services))
	total := 0
	for _, svc := range services {
		names = append(names, svc.Name)
		total += svc.DurationMinutes
	}

	return &visitSummary{
		client:          client,
		barber:          barber,
		date:            head.Date,
		timeOfDay:       head.Time,
		serviceList:     strings.Join(names, ", "),
		durationMinutes: total,
	}, nil
}

// groupBookings собирает строки в группы-визиты со стабильным порядком
func groupBookings(bookings []*entity.Booking) [][]*entity.Booking {
	byKey := make(map[string][]*entity.Booking)
	keys := make([]string, 0)

	for _, b := range bookings {
		k := b.GroupKey().String()
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], b)
	}

	sort.Strings(keys)

	groups := make([][]*entity.Booking, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byKey[k])
	}
	return groups
}

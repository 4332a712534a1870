package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job — одна итерация периодической работы.
type Job interface {
	Name() string
	RunPass(ctx context.Context) error
}

// Scheduler запускает Job на фиксированном интервале. Пропуски не
// накладываются: если предыдущий проход ещё идёт, очередной тик
// пропускается (иначе два прохода могут одновременно увидеть
// несброшенные флаги и продублировать отправку).
type Scheduler struct {
	job      Job
	interval time.Duration
	mu       sync.Mutex
}

func NewScheduler(job Job, interval time.Duration) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logrus.Infof("Scheduler %s started, interval %s", s.job.Name(), s.interval)

	for {
		select {
		case <-ticker.C:
			s.runGuarded(ctx)
		case <-ctx.Done():
			logrus.Infof("Scheduler %s stopped", s.job.Name())
			return
		}
	}
}

func (s *Scheduler) runGuarded(ctx context.Context) {
	if !s.mu.TryLock() {
		logrus.Warnf("Scheduler %s: previous pass still running, tick skipped", s.job.Name())
		return
	}
	defer s.mu.Unlock()

	if err := s.job.RunPass(ctx); err != nil {
		logrus.Errorf("Scheduler %s: pass failed: %v", s.job.Name(), err)
	}
}

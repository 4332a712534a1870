package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/barberhub/booking-service/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeQueueInspector struct {
	stats    *queue.QueueStats
	dlqStats *queue.DLQStats
	failed   []*queue.FailedTask
	gotLimit int
	requeued []string
}

func (f *fakeQueueInspector) GetQueueStats(context.Context) (*queue.QueueStats, error) {
	return f.stats, nil
}

func (f *fakeQueueInspector) GetDLQStats(context.Context) (*queue.DLQStats, error) {
	return f.dlqStats, nil
}

func (f *fakeQueueInspector) GetFailedTasks(_ context.Context, limit int) ([]*queue.FailedTask, error) {
	f.gotLimit = limit
	return f.failed, nil
}

func (f *fakeQueueInspector) RequeueFailedTask(_ context.Context, taskID string) error {
	for _, ft := range f.failed {
		if ft.Task.ID == taskID {
			f.requeued = append(f.requeued, taskID)
			return nil
		}
	}
	return fmt.Errorf("task %s not found in DLQ", taskID)
}

func adminRequest(method, target string, params gin.Params) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Params = params
	return w, c
}

// TestGetQueueStats проверяет сводку по очередям вместе с DLQ
func TestGetQueueStats(t *testing.T) {
	inspector := &fakeQueueInspector{
		stats:    &queue.QueueStats{MainQueue: 3, DelayedQueue: 1, DLQ: 2},
		dlqStats: &queue.DLQStats{QueueSize: 2},
	}
	h := NewBookingHandler(nil, inspector)

	w, c := adminRequest(http.MethodGet, "/api/v1/admin/queue", nil)
	h.GetQueueStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"main_queue":3`)
	assert.Contains(t, w.Body.String(), `"queue_size":2`)
}

// TestGetQueueStatsDisabled проверяет ответ при выключенной очереди
func TestGetQueueStatsDisabled(t *testing.T) {
	h := NewBookingHandler(nil, nil)

	w, c := adminRequest(http.MethodGet, "/api/v1/admin/queue", nil)
	h.GetQueueStats(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestGetFailedTasks проверяет выдачу DLQ и лимит по умолчанию
func TestGetFailedTasks(t *testing.T) {
	inspector := &fakeQueueInspector{
		failed: []*queue.FailedTask{
			{Task: &queue.Task{ID: "task_1"}, Error: "send failed", Attempts: 3},
		},
	}
	h := NewBookingHandler(nil, inspector)

	w, c := adminRequest(http.MethodGet, "/api/v1/admin/dlq", nil)
	h.GetFailedTasks(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, inspector.gotLimit)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "task_1")
}

// TestRequeueFailedTask проверяет возврат задачи из DLQ и 404 для чужого id
func TestRequeueFailedTask(t *testing.T) {
	inspector := &fakeQueueInspector{
		failed: []*queue.FailedTask{{Task: &queue.Task{ID: "task_1"}}},
	}
	h := NewBookingHandler(nil, inspector)

	w, c := adminRequest(http.MethodPost, "/api/v1/admin/dlq/task_1/requeue",
		gin.Params{{Key: "id", Value: "task_1"}})
	h.RequeueFailedTask(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"task_1"}, inspector.requeued)

	w, c = adminRequest(http.MethodPost, "/api/v1/admin/dlq/task_9/requeue",
		gin.Params{{Key: "id", Value: "task_9"}})
	h.RequeueFailedTask(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

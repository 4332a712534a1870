package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBot(t *testing.T, handler http.HandlerFunc) *Bot {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	bot := NewBot("test-token", time.Second)
	bot.baseURL = srv.URL
	return bot
}

// TestSendOK тестирует успешную отправку и параметры запроса
func TestSendOK(t *testing.T) {
	var gotPath, gotChatID, gotText string

	bot := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChatID = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.Write([]byte(`{"ok":true}`))
	})

	err := bot.Send(context.Background(), "12345", "Привет!")
	require.NoError(t, err)

	assert.Equal(t, "/sendMessage", gotPath)
	assert.Equal(t, "12345", gotChatID)
	assert.Equal(t, "Привет!", gotText)
}

// TestSendUnreachable тестирует классификацию постоянных отказов
func TestSendUnreachable(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		unreachable bool
	}{
		{
			name:        "forbidden",
			body:        `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
			unreachable: true,
		},
		{
			name:        "chat not found",
			body:        `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			unreachable: true,
		},
		{
			name:        "deactivated user",
			body:        `{"ok":false,"error_code":400,"description":"Forbidden: user is deactivated"}`,
			unreachable: true,
		},
		{
			name:        "rate limit is transient",
			body:        `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5"}`,
			unreachable: false,
		},
		{
			name:        "internal error is transient",
			body:        `{"ok":false,"error_code":500,"description":"Internal Server Error"}`,
			unreachable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := testBot(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			err := bot.Send(context.Background(), "12345", "text")
			require.Error(t, err)
			assert.Equal(t, tt.unreachable, IsUnreachable(err))
		})
	}
}

// TestSendContextCancelled тестирует отмену по контексту
func TestSendContextCancelled(t *testing.T) {
	bot := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"ok":true}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := bot.Send(ctx, "12345", "text")
	require.Error(t, err)
	assert.False(t, IsUnreachable(err), "таймаут — временный сбой")
}

// TestSendPhoto тестирует отправку изображения с подписью
func TestSendPhoto(t *testing.T) {
	var gotPath, gotPhoto, gotCaption string

	bot := testBot(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotPhoto = r.FormValue("photo")
		gotCaption = r.FormValue("caption")
		w.Write([]byte(`{"ok":true}`))
	})

	err := bot.SendPhoto(context.Background(), "12345", "https://example.com/cut.jpg", "Новая стрижка")
	require.NoError(t, err)

	assert.Equal(t, "/sendPhoto", gotPath)
	assert.Equal(t, "https://example.com/cut.jpg", gotPhoto)
	assert.Equal(t, "Новая стрижка", gotCaption)
}

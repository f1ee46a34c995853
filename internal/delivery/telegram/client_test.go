package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"channel-subscription-bot/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(filepath.Join(t.TempDir(), "test.log"), "ERROR", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Close)
	return log
}

// slowServer отвечает с задержкой, как getUpdates при пустой очереди обновлений
func slowServer(t *testing.T, delay time.Duration, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetUpdates_OutlivesRequestTimeout(t *testing.T) {
	server := slowServer(t, 300*time.Millisecond, `{"ok":true,"result":[]}`)

	c := NewClient("token", 100*time.Millisecond, testLogger(t))
	c.baseURL = server.URL + "/"

	// Сервер держит соединение дольше таймаута обычного запроса:
	// пустой цикл long polling'а не должен обрываться по таймауту
	updates, err := c.GetUpdates(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("long polling прерван: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("ожидался пустой список обновлений")
	}
}

func TestGetUpdates_RespectsPollDeadline(t *testing.T) {
	server := slowServer(t, 2*time.Second, `{"ok":true,"result":[]}`)

	c := NewClient("token", 100*time.Millisecond, testLogger(t))
	c.baseURL = server.URL + "/"

	// Дедлайн опроса: таймаут ожидания плюс запас на запрос
	start := time.Now()
	if _, err := c.GetUpdates(context.Background(), 1, 0); err == nil {
		t.Fatalf("зависший опрос не прерван")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("опрос висел %s", elapsed)
	}
}

func TestSendMessage_RequestTimeout(t *testing.T) {
	server := slowServer(t, 500*time.Millisecond, `{"ok":true}`)

	c := NewClient("token", 100*time.Millisecond, testLogger(t))
	c.baseURL = server.URL + "/"

	// Обычные запросы ограничены коротким таймаутом клиента
	if err := c.SendMessage(context.Background(), 1, "привет"); err == nil {
		t.Fatalf("ожидался таймаут обычного запроса")
	}
}

func TestCall_APIError(t *testing.T) {
	server := slowServer(t, 0, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

	c := NewClient("token", time.Second, testLogger(t))
	c.baseURL = server.URL + "/"

	if err := c.SendMessage(context.Background(), 1, "привет"); err == nil {
		t.Fatalf("ошибка API не передана")
	}
}

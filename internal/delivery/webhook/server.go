// internal/delivery/webhook/server.go
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"channel-subscription-bot/internal/core/domain/settlement"
	"channel-subscription-bot/pkg/logger"
)

// maxBodySize предел размера тела уведомления
const maxBodySize = 1 << 20

// Server HTTP сервер приема уведомлений платежных провайдеров
type Server struct {
	httpServer *http.Server
	reconciler *settlement.Reconciler
	logger     *logger.Logger
}

// NewServer создает сервер webhook'ов
func NewServer(port int, reconciler *settlement.Reconciler, log *logger.Logger) *Server {
	s := &Server{
		reconciler: reconciler,
		logger:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook/", s.handleWebhook)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start запускает сервер. Блокирует до остановки.
func (s *Server) Start() error {
	s.logger.Info("🌐 Webhook сервер запущен на %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка webhook сервера: %w", err)
	}

	return nil
}

// Shutdown останавливает сервер, дожидаясь текущих запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth проверка живости
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWebhook принимает уведомление провайдера: POST /webhook/{provider}.
// Повторы и промежуточные события подтверждаются кодом 200, чтобы провайдер
// прекратил доставку; 5xx возвращается только когда обработку нужно повторить.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerCode := strings.TrimPrefix(r.URL.Path, "/webhook/")
	if providerCode == "" || strings.Contains(providerCode, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	err = s.reconciler.HandleNotification(r.Context(), providerCode, body, r.Header)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	case errors.Is(err, settlement.ErrUnknownProvider):
		s.logger.Warn("⚠️ Уведомление для неизвестного провайдера %s", providerCode)
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, settlement.ErrInvalidSignature):
		s.logger.Warn("⚠️ Уведомление %s с невалидной подписью", providerCode)
		http.Error(w, "bad signature", http.StatusBadRequest)
	default:
		s.logger.Error("❌ Ошибка обработки уведомления %s: %v", providerCode, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

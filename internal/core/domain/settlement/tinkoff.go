// internal/core/domain/settlement/tinkoff.go
package settlement

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

const tinkoffAPIURL = "https://securepay.tinkoff.ru/v2"

// TinkoffProvider провайдер Tinkoff Kassa
type TinkoffProvider struct {
	terminalKey string
	secretKey   string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewTinkoffProvider создает провайдера Tinkoff Kassa
func NewTinkoffProvider(terminalKey, secretKey string, log *logger.Logger) *TinkoffProvider {
	return &TinkoffProvider{
		terminalKey: terminalKey,
		secretKey:   secretKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      log,
	}
}

// Code возвращает код способа оплаты
func (p *TinkoffProvider) Code() string {
	return models.MethodTinkoff
}

// tinkoffToken считает подпись запроса: значения полей, отсортированных
// по имени ключа, конкатенируются вместе с паролем и хэшируются SHA-256
func tinkoffToken(fields map[string]string, password string) string {
	all := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		all[k] = v
	}
	all["Password"] = password

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var concat string
	for _, k := range keys {
		concat += all[k]
	}

	sum := sha256.Sum256([]byte(concat))
	return hex.EncodeToString(sum[:])
}

// CreateInvoice инициирует платеж через Tinkoff Init.
// Сумма передается в копейках, OrderId - внутренний ID платежа.
func (p *TinkoffProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	orderID := strconv.FormatInt(req.Payment.ID, 10)
	amountKopecks := req.Payment.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	tokenFields := map[string]string{
		"TerminalKey": p.terminalKey,
		"Amount":      strconv.FormatInt(amountKopecks, 10),
		"OrderId":     orderID,
		"Description": req.Description,
	}

	body := map[string]interface{}{
		"TerminalKey": p.terminalKey,
		"Amount":      amountKopecks,
		"OrderId":     orderID,
		"Description": req.Description,
		"Token":       tinkoffToken(tokenFields, p.secretKey),
		"DATA": map[string]string{
			"user_id": strconv.FormatInt(req.Payment.UserID, 10),
			"plan_id": strconv.Itoa(req.Payment.PlanID),
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса Tinkoff: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tinkoffAPIURL+"/Init", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса Tinkoff: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка вызова Tinkoff: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа Tinkoff: %w", err)
	}

	var initResp struct {
		Success    bool   `json:"Success"`
		PaymentID  string `json:"PaymentId"`
		PaymentURL string `json:"PaymentURL"`
		Message    string `json:"Message"`
		Details    string `json:"Details"`
	}
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа Tinkoff: %w", err)
	}

	if !initResp.Success {
		return nil, fmt.Errorf("Tinkoff Init отклонен: %s %s", initResp.Message, initResp.Details)
	}

	p.logger.Info("💳 Платеж Tinkoff создан: %s для платежа #%d", initResp.PaymentID, req.Payment.ID)

	return &Invoice{
		ExternalID: initResp.PaymentID,
		PayURL:     initResp.PaymentURL,
	}, nil
}

// VerifyAndExtract проверяет подпись уведомления Tinkoff и извлекает платеж.
// Подпись пересчитывается по всем скалярным полям уведомления кроме Token.
// Оплаченным считается только статус CONFIRMED.
func (p *TinkoffProvider) VerifyAndExtract(_ context.Context, body []byte, _ http.Header) (*Notification, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("ошибка разбора уведомления Tinkoff: %w", err)
	}

	gotToken, _ := raw["Token"].(string)
	if gotToken == "" {
		return nil, ErrInvalidSignature
	}

	fields := make(map[string]string)
	for k, v := range raw {
		if k == "Token" {
			continue
		}
		switch val := v.(type) {
		case string:
			fields[k] = val
		case bool:
			fields[k] = strconv.FormatBool(val)
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}

	if tinkoffToken(fields, p.secretKey) != gotToken {
		return nil, ErrInvalidSignature
	}

	status, _ := raw["Status"].(string)
	orderID, _ := raw["OrderId"].(string)
	paymentIDNum, _ := raw["PaymentId"].(float64)

	amount := decimal.Zero
	if amountKopecks, ok := raw["Amount"].(float64); ok {
		amount = decimal.NewFromFloat(amountKopecks).Div(decimal.NewFromInt(100))
	}

	note := &Notification{
		ProviderCode: p.Code(),
		ExternalID:   strconv.FormatInt(int64(paymentIDNum), 10),
		Paid:         status == "CONFIRMED",
		Amount:       amount,
		CurrencyCode: models.CurrencyRUB,
	}

	// OrderId - наш внутренний ID платежа
	note.PaymentID, _ = strconv.ParseInt(orderID, 10, 64)

	return note, nil
}

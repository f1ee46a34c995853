// internal/core/domain/settlement/yookassa.go
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const yooKassaAPIURL = "https://api.yookassa.ru/v3"

// YooKassaProvider провайдер ЮKassa
type YooKassaProvider struct {
	shopID     string
	secretKey  string
	returnURL  string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewYooKassaProvider создает провайдера ЮKassa
func NewYooKassaProvider(shopID, secretKey, returnURL string, log *logger.Logger) *YooKassaProvider {
	return &YooKassaProvider{
		shopID:     shopID,
		secretKey:  secretKey,
		returnURL:  returnURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}

// Code возвращает код способа оплаты
func (p *YooKassaProvider) Code() string {
	return models.MethodYooKassa
}

// yooKassaPaymentObject объект платежа в API ЮKassa
type yooKassaPaymentObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	Metadata map[string]string `json:"metadata"`
}

// CreateInvoice создает платеж в ЮKassa.
// Ключ идемпотентности - новый UUID: повтор запроса при сетевой ошибке
// не создаст второй платеж.
func (p *YooKassaProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	body := map[string]interface{}{
		"amount": map[string]string{
			"value":    req.Payment.Amount.StringFixed(2),
			"currency": req.Currency.Code,
		},
		"capture": true,
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": p.returnURL,
		},
		"description": req.Description,
		"metadata": map[string]string{
			"payment_id": strconv.FormatInt(req.Payment.ID, 10),
			"user_id":    strconv.FormatInt(req.Payment.UserID, 10),
			"plan_id":    strconv.Itoa(req.Payment.PlanID),
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса ЮKassa: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, yooKassaAPIURL+"/payments", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса ЮKassa: %w", err)
	}
	httpReq.SetBasicAuth(p.shopID, p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", uuid.New().String())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка вызова ЮKassa: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа ЮKassa: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ЮKassa вернула статус %d: %s", resp.StatusCode, string(respBody))
	}

	var payment yooKassaPaymentObject
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа ЮKassa: %w", err)
	}

	p.logger.Info("💳 Платеж ЮKassa создан: %s для платежа #%d", payment.ID, req.Payment.ID)

	return &Invoice{
		ExternalID: payment.ID,
		PayURL:     payment.Confirmation.ConfirmationURL,
	}, nil
}

// yooKassaWebhook уведомление ЮKassa
type yooKassaWebhook struct {
	Event  string                `json:"event"`
	Object yooKassaPaymentObject `json:"object"`
}

// VerifyAndExtract разбирает webhook ЮKassa.
// ЮKassa не подписывает уведомления; вместо подписи статус платежа
// перепроверяется запросом к API по ID из уведомления.
func (p *YooKassaProvider) VerifyAndExtract(ctx context.Context, body []byte, _ http.Header) (*Notification, error) {
	var hook yooKassaWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("ошибка разбора уведомления ЮKassa: %w", err)
	}

	if hook.Object.ID == "" {
		return nil, fmt.Errorf("уведомление ЮKassa без ID платежа")
	}

	paid := hook.Event == "payment.succeeded"
	if paid {
		confirmed, err := p.fetchPayment(ctx, hook.Object.ID)
		if err != nil {
			return nil, err
		}
		if confirmed.Status != "succeeded" {
			p.logger.Warn("⚠️ Уведомление ЮKassa о платеже %s не подтвердилось: статус %s", hook.Object.ID, confirmed.Status)
			paid = false
		} else {
			hook.Object = *confirmed
		}
	}

	amount, err := decimal.NewFromString(hook.Object.Amount.Value)
	if err != nil {
		amount = decimal.Zero
	}

	note := &Notification{
		ProviderCode: p.Code(),
		ExternalID:   hook.Object.ID,
		Paid:         paid,
		Amount:       amount,
		CurrencyCode: hook.Object.Amount.Currency,
	}

	if v, ok := hook.Object.Metadata["payment_id"]; ok {
		note.PaymentID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := hook.Object.Metadata["user_id"]; ok {
		note.UserID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := hook.Object.Metadata["plan_id"]; ok {
		note.PlanID, _ = strconv.Atoi(v)
	}

	return note, nil
}

// fetchPayment запрашивает платеж из API ЮKassa
func (p *YooKassaProvider) fetchPayment(ctx context.Context, externalID string) (*yooKassaPaymentObject, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, yooKassaAPIURL+"/payments/"+externalID, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса статуса ЮKassa: %w", err)
	}
	httpReq.SetBasicAuth(p.shopID, p.secretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса статуса ЮKassa: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения статуса ЮKassa: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ЮKassa вернула статус %d при проверке платежа %s", resp.StatusCode, externalID)
	}

	var payment yooKassaPaymentObject
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("ошибка разбора статуса ЮKassa: %w", err)
	}

	return &payment, nil
}

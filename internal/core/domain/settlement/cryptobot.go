// internal/core/domain/settlement/cryptobot.go
package settlement

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"channel-subscription-bot/internal/infrastructure/persistence/postgres/models"
	"channel-subscription-bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// CryptoBotProvider провайдер Crypto Pay API (@CryptoBot)
type CryptoBotProvider struct {
	token      string
	apiURL     string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewCryptoBotProvider создает провайдера Crypto Pay
func NewCryptoBotProvider(token, apiURL string, log *logger.Logger) *CryptoBotProvider {
	if apiURL == "" {
		apiURL = "https://pay.crypt.bot"
	}

	return &CryptoBotProvider{
		token:      token,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}
}

// Code возвращает код способа оплаты
func (p *CryptoBotProvider) Code() string {
	return models.MethodCryptoBot
}

// CreateInvoice создает инвойс в Crypto Pay.
// В payload кладется внутренний ID платежа для сопоставления при оплате.
func (p *CryptoBotProvider) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	body := map[string]interface{}{
		"asset":       req.Currency.Code,
		"amount":      req.Payment.Amount.String(),
		"description": req.Description,
		"payload":     strconv.FormatInt(req.Payment.ID, 10),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации запроса Crypto Pay: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/api/createInvoice", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса Crypto Pay: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Crypto-Pay-API-Token", p.token)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка вызова Crypto Pay: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа Crypto Pay: %w", err)
	}

	var apiResp struct {
		OK     bool `json:"ok"`
		Result struct {
			InvoiceID     int64  `json:"invoice_id"`
			BotInvoiceURL string `json:"bot_invoice_url"`
			PayURL        string `json:"pay_url"`
		} `json:"result"`
		Error struct {
			Code int    `json:"code"`
			Name string `json:"name"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа Crypto Pay: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("Crypto Pay отклонил запрос: %d %s", apiResp.Error.Code, apiResp.Error.Name)
	}

	payURL := apiResp.Result.BotInvoiceURL
	if payURL == "" {
		payURL = apiResp.Result.PayURL
	}

	p.logger.Info("💳 Инвойс Crypto Pay создан: %d для платежа #%d", apiResp.Result.InvoiceID, req.Payment.ID)

	return &Invoice{
		ExternalID: strconv.FormatInt(apiResp.Result.InvoiceID, 10),
		PayURL:     payURL,
	}, nil
}

// VerifyAndExtract проверяет подпись webhook'а Crypto Pay.
// Подпись - HMAC-SHA256 тела запроса, ключ - SHA-256 от API токена.
func (p *CryptoBotProvider) VerifyAndExtract(_ context.Context, body []byte, headers http.Header) (*Notification, error) {
	signature := headers.Get("Crypto-Pay-Api-Signature")
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	secret := sha256.Sum256([]byte(p.token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var update struct {
		UpdateType string `json:"update_type"`
		Payload    struct {
			InvoiceID int64  `json:"invoice_id"`
			Status    string `json:"status"`
			Asset     string `json:"asset"`
			Amount    string `json:"amount"`
			Payload   string `json:"payload"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("ошибка разбора уведомления Crypto Pay: %w", err)
	}

	amount, err := decimal.NewFromString(update.Payload.Amount)
	if err != nil {
		amount = decimal.Zero
	}

	note := &Notification{
		ProviderCode: p.Code(),
		ExternalID:   strconv.FormatInt(update.Payload.InvoiceID, 10),
		Paid:         update.UpdateType == "invoice_paid" && update.Payload.Status == "paid",
		Amount:       amount,
		CurrencyCode: update.Payload.Asset,
	}

	// В payload инвойса лежит наш внутренний ID платежа
	note.PaymentID, _ = strconv.ParseInt(update.Payload.Payload, 10, 64)

	return note, nil
}

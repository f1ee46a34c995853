// internal/delivery/telegram/client.go
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"channel-subscription-bot/pkg/logger"
)

// Client - клиент Telegram Bot API поверх HTTP
type Client struct {
	httpClient *http.Client
	// pollClient без собственного таймаута: long polling держит соединение
	// дольше обычного запроса, срок ожидания задает контекст в GetUpdates
	pollClient     *http.Client
	requestTimeout time.Duration
	baseURL        string
	logger         *logger.Logger
}

// NewClient создает клиент Bot API
func NewClient(token string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		pollClient:     &http.Client{},
		requestTimeout: timeout,
		baseURL:        fmt.Sprintf("https://api.telegram.org/bot%s/", token),
		logger:         log,
	}
}

// apiResponse - общий конверт ответа Telegram API
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

// call выполняет метод Bot API и декодирует result в dest (если dest != nil)
func (c *Client) call(ctx context.Context, method string, payload interface{}, dest interface{}) error {
	return c.do(ctx, c.httpClient, method, payload, dest)
}

// do выполняет метод Bot API указанным HTTP-клиентом
func (c *Client) do(ctx context.Context, httpClient *http.Client, method string, payload interface{}, dest interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка вызова %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа %s: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("ошибка разбора ответа %s: %w", method, err)
	}

	if !apiResp.OK {
		// При 429 ждем и повторяем один раз
		if apiResp.ErrorCode == 429 {
			retryAfter := 5
			if apiResp.Parameters.RetryAfter > 0 {
				retryAfter = apiResp.Parameters.RetryAfter
			}
			c.logger.Warn("⚠️ Telegram API лимит на %s, ждем %d секунд", method, retryAfter)

			select {
			case <-time.After(time.Duration(retryAfter) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			return c.do(ctx, httpClient, method, payload, dest)
		}
		return fmt.Errorf("telegram API error %d на %s: %s", apiResp.ErrorCode, method, apiResp.Description)
	}

	if dest != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, dest); err != nil {
			return fmt.Errorf("ошибка разбора result %s: %w", method, err)
		}
	}

	return nil
}

// SendMessage отправляет текстовое сообщение
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.SendMessageWithKeyboard(ctx, chatID, text, nil)
}

// SendMessageWithKeyboard отправляет сообщение с inline клавиатурой
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	return c.call(ctx, "sendMessage", payload, nil)
}

// SendPhotoWithKeyboard отправляет фото по file_id с подписью и inline клавиатурой
func (c *Client) SendPhotoWithKeyboard(ctx context.Context, chatID int64, fileID, caption string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"photo":      fileID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	return c.call(ctx, "sendPhoto", payload, nil)
}

// SendInvoice выставляет инвойс Telegram Stars (валюта XTR, provider_token пустой)
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, starsAmount int64) error {
	body := map[string]interface{}{
		"chat_id":     chatID,
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    "XTR",
		"prices": []map[string]interface{}{
			{"label": title, "amount": starsAmount},
		},
	}

	return c.call(ctx, "sendInvoice", body, nil)
}

// AnswerPreCheckoutQuery подтверждает или отклоняет pre-checkout запрос Stars.
// Telegram ждет ответ не дольше 10 секунд.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	payload := map[string]interface{}{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		payload["error_message"] = errorMessage
	}

	return c.call(ctx, "answerPreCheckoutQuery", payload, nil)
}

// AnswerCallbackQuery подтверждает нажатие inline кнопки
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	payload := map[string]interface{}{
		"callback_query_id": queryID,
	}
	if text != "" {
		payload["text"] = text
	}

	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// GetChatMember возвращает статус участника чата
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}

	var member ChatMember
	if err := c.call(ctx, "getChatMember", payload, &member); err != nil {
		return nil, err
	}

	return &member, nil
}

// BanChatMember блокирует участника канала
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}

	return c.call(ctx, "banChatMember", payload, nil)
}

// UnbanChatMember снимает блокировку. only_if_banned защищает от выкидывания
// участника, который не был заблокирован.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	payload := map[string]interface{}{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	}

	return c.call(ctx, "unbanChatMember", payload, nil)
}

// ApproveChatJoinRequest одобряет заявку на вступление в канал
func (c *Client) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}

	return c.call(ctx, "approveChatJoinRequest", payload, nil)
}

// DeclineChatJoinRequest отклоняет заявку на вступление в канал
func (c *Client) DeclineChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}

	return c.call(ctx, "declineChatJoinRequest", payload, nil)
}

// CreateChatInviteLink создает одноразовую ссылку-приглашение с заявкой на вступление
func (c *Client) CreateChatInviteLink(ctx context.Context, chatID int64, name string) (string, error) {
	payload := map[string]interface{}{
		"chat_id":              chatID,
		"name":                 name,
		"creates_join_request": true,
	}

	var link struct {
		InviteLink string `json:"invite_link"`
	}
	if err := c.call(ctx, "createChatInviteLink", payload, &link); err != nil {
		return "", err
	}

	return link.InviteLink, nil
}

// GetUpdates получает обновления long polling'ом. Сервер отвечает только
// через timeoutSec секунд, поэтому дедлайн запроса - таймаут ожидания
// плюс обычный запас на сам запрос.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":  offset,
		"timeout": timeoutSec,
		"allowed_updates": []string{
			"message", "callback_query", "pre_checkout_query", "chat_join_request",
		},
	}

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second+c.requestTimeout)
	defer cancel()

	var updates []Update
	if err := c.do(pollCtx, c.pollClient, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

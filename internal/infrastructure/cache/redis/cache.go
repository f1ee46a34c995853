// internal/infrastructure/cache/redis/cache.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache обертка над Redis для кэширования горячих данных бота
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache создает подключение к Redis
func NewCache(addr, password string, db int) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: "subbot:",
	}
}

// Ping проверяет доступность Redis
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает подключение
func (c *Cache) Close() error {
	return c.client.Close()
}

// Set устанавливает значение в Redis с TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	fullKey := c.prefix + key

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, fullKey, data, ttl).Err()
}

// Get получает значение из Redis
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	fullKey := c.prefix + key

	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Delete удаляет ключ из Redis
func (c *Cache) Delete(ctx context.Context, key string) error {
	fullKey := c.prefix + key
	return c.client.Del(ctx, fullKey).Err()
}

// DeleteMulti удаляет несколько ключей из Redis
func (c *Cache) DeleteMulti(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = c.prefix + key
	}

	return c.client.Del(ctx, fullKeys...).Err()
}

// SetAccess кэширует результат проверки доступа пользователя к каналу
func (c *Cache) SetAccess(ctx context.Context, telegramID, chatID int64, hasAccess bool, ttl time.Duration) error {
	key := fmt.Sprintf("access:%d:%d", telegramID, chatID)
	return c.Set(ctx, key, hasAccess, ttl)
}

// GetAccess получает закэшированный результат проверки доступа
func (c *Cache) GetAccess(ctx context.Context, telegramID, chatID int64) (bool, error) {
	key := fmt.Sprintf("access:%d:%d", telegramID, chatID)

	var hasAccess bool
	if err := c.Get(ctx, key, &hasAccess); err != nil {
		return false, err
	}

	return hasAccess, nil
}

// DeleteAccess сбрасывает кэш доступа пользователя к каналу.
// Вызывается при активации и деактивации подписки.
func (c *Cache) DeleteAccess(ctx context.Context, telegramID, chatID int64) error {
	key := fmt.Sprintf("access:%d:%d", telegramID, chatID)
	return c.Delete(ctx, key)
}

// SetTariffs кэширует список активных тарифов
func (c *Cache) SetTariffs(ctx context.Context, tariffs interface{}, ttl time.Duration) error {
	return c.Set(ctx, "tariffs:active", tariffs, ttl)
}

// GetTariffs получает список активных тарифов из кэша
func (c *Cache) GetTariffs(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, "tariffs:active", dest)
}

// DeleteTariffs сбрасывает кэш тарифов после изменения каталога
func (c *Cache) DeleteTariffs(ctx context.Context) error {
	return c.Delete(ctx, "tariffs:active")
}

// IsNotFound проверяет, что ключ отсутствует в кэше
func IsNotFound(err error) bool {
	return err == redis.Nil
}

package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/inventory"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain/entity"
)

const idempotencyKeyPrefix = "stock:idem:"

var _ inventory.IdempotencyCache = (*IdempotencyCache)(nil)

// IdempotencyCache guarda movimientos confirmados por (producto, clave de idempotencia).
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyCache ttl <= 0 usa 24h.
func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func cacheKey(productID int64, key string) string {
	return fmt.Sprintf("%s%d:%s", idempotencyKeyPrefix, productID, key)
}

// Get devuelve el movimiento guardado; ok=false si la clave no está.
func (c *IdempotencyCache) Get(ctx context.Context, productID int64, key string) (*entity.StockTransaction, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(productID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var t entity.StockTransaction
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false, fmt.Errorf("decode cached transaction: %w", err)
	}
	return &t, true, nil
}

// Put guarda el movimiento solo si la clave no existe (SETNX con TTL).
func (c *IdempotencyCache) Put(ctx context.Context, t *entity.StockTransaction) error {
	if t == nil || t.IdempotencyKey == "" {
		return nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if err := c.client.SetNX(ctx, cacheKey(t.ProductID, t.IdempotencyKey), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps availability listings for a short TTL. Entries are keyed by
// a generation counter that every slot mutation increments, so a listing
// computed before a mutation is never served after it.
type RedisCache struct {
	client   *redis.Client
	slotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, slotsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		slotsTTL: slotsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Generation returns the current availability generation, 0 if never bumped.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetSlots reports a miss with ok=false; an empty cached listing is a hit.
func (c *RedisCache) GetSlots(ctx context.Context, gen int64, filter domain.SlotFilter) ([]domain.Slot, bool, error) {
	data, err := c.client.Get(ctx, slotsKey(gen, filter)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var slots []domain.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false, err
	}
	return slots, true, nil
}

func (c *RedisCache) SetSlots(ctx context.Context, gen int64, filter domain.SlotFilter, slots []domain.Slot) error {
	if slots == nil {
		slots = []domain.Slot{}
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotsKey(gen, filter), payload, c.slotsTTL).Err()
}

// Invalidate retires every cached listing at once.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey()).Err()
}

func generationKey() string {
	return "cache:slots:gen"
}

func slotsKey(gen int64, filter domain.SlotFilter) string {
	raw := fmt.Sprintf("%s|%s|%d|%d", filter.ResourceIdentifier, filter.ServiceTag, unixOrZero(filter.From), unixOrZero(filter.To))
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("cache:slots:%d:%s", gen, hex.EncodeToString(sum[:]))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

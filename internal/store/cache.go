package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecentColorsKey je sorted set posledních barev ve Valkey.
// Skóre je čas záznamu v ms, takže pořadí nezávisí na pořadí zápisů.
const RecentColorsKey = "led:recent"

// recentKeep je počet záznamů, které se v setu drží.
const recentKeep = 50

// DefaultCacheTTL platí, když CACHE_TTL není nastavené.
const DefaultCacheTTL = 10 * time.Minute

// Cache je LastColorCache nad Valkey (Redis).
// Klíč expiruje po ttl bez zápisu: když zapisovatel přestane Valkey
// používat, čtení se vrátí do PG a nezůstane viset na starém záznamu.
type Cache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewCache se připojí k Valkey a ověří spojení.
func NewCache(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Valkey není dostupný: %w", err)
	}
	return newCache(rdb, ttl), nil
}

func newCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, key: RecentColorsKey, ttl: ttl}
}

// Close uzavře klienta.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Add vloží záznam se skóre podle jeho timestampu, ořízne set na
// recentKeep nejnovějších a obnoví expiraci. Vše v jedné MULTI/EXEC.
func (c *Cache) Add(ctx context.Context, rec Record) error {
	score, err := timestampScore(rec.Timestamp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, c.key, redis.Z{Score: score, Member: string(data)})
		pipe.ZRemRangeByRank(ctx, c.key, 0, -(recentKeep + 1))
		pipe.Expire(ctx, c.key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("zápis do %s: %w", c.key, err)
	}
	return nil
}

// Last vrátí záznam s nejvyšším timestampem. Prázdný set není chyba.
func (c *Cache) Last(ctx context.Context) (Record, bool, error) {
	members, err := c.rdb.ZRevRange(ctx, c.key, 0, 0).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("čtení %s: %w", c.key, err)
	}
	if len(members) == 0 {
		return Record{}, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(members[0]), &rec); err != nil {
		return Record{}, false, fmt.Errorf("poškozená hodnota %s: %w", c.key, err)
	}
	return rec, true, nil
}

// timestampScore převede ISO-8601 timestamp na ms od epochy.
func timestampScore(ts string) (float64, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0, fmt.Errorf("neplatný timestamp %q: %w", ts, err)
	}
	return float64(t.UnixMilli()), nil
}

package inventory

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/decrement.lua
var decrementScript string

//go:embed scripts/increment.lua
var incrementScript string

//go:embed scripts/zero_out.lua
var zeroOutScript string

// RedisLedger keeps each event's counts in one hash (tier -> seats).
// Check-and-decrement, guarded increment and zero-out run as Lua
// scripts, so each is a single atomic step on the Redis server.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string

	decrement *redis.Script
	increment *redis.Script
	zeroOut   *redis.Script
}

// NewRedisLedger returns a ledger storing hashes under prefix.  An
// empty prefix defaults to "inventory".
func NewRedisLedger(rdb *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "inventory"
	}
	return &RedisLedger{
		rdb:       rdb,
		prefix:    prefix,
		decrement: redis.NewScript(decrementScript),
		increment: redis.NewScript(incrementScript),
		zeroOut:   redis.NewScript(zeroOutScript),
	}
}

func (l *RedisLedger) key(eventID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, eventID)
}

func (l *RedisLedger) Load(ctx context.Context, eventID string, seats map[string]int) error {
	key := l.key(eventID)
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(seats) > 0 {
			fields := make(map[string]interface{}, len(seats))
			for tier, n := range seats {
				if n < 0 {
					n = 0
				}
				fields[tier] = n
			}
			p.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load inventory %s: %w", eventID, err)
	}
	return nil
}

func (l *RedisLedger) Decrement(ctx context.Context, eventID, tier string, qty int) (int, error) {
	n, err := l.decrement.Run(ctx, l.rdb, []string{l.key(eventID)}, tier, qty).Int64()
	if err != nil {
		return 0, fmt.Errorf("decrement inventory %s/%s: %w", eventID, tier, err)
	}
	switch n {
	case -2:
		return 0, ErrUnknownCategory
	case -1:
		return 0, ErrInsufficient
	}
	return int(n), nil
}

func (l *RedisLedger) Increment(ctx context.Context, eventID, tier string, qty int) error {
	n, err := l.increment.Run(ctx, l.rdb, []string{l.key(eventID)}, tier, qty).Int64()
	if err != nil {
		return fmt.Errorf("increment inventory %s/%s: %w", eventID, tier, err)
	}
	if n == -2 {
		return ErrUnknownCategory
	}
	return nil
}

func (l *RedisLedger) ZeroOut(ctx context.Context, eventID string) (map[string]int, error) {
	tiers, err := l.zeroOut.Run(ctx, l.rdb, []string{l.key(eventID)}).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("zero out inventory %s: %w", eventID, err)
	}
	out := make(map[string]int, len(tiers))
	for _, tier := range tiers {
		out[tier] = 0
	}
	return out, nil
}

func (l *RedisLedger) Snapshot(ctx context.Context, eventID string) (map[string]int, error) {
	raw, err := l.rdb.HGetAll(ctx, l.key(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot inventory %s: %w", eventID, err)
	}
	out := make(map[string]int, len(raw))
	for tier, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot inventory %s/%s: bad count %q", eventID, tier, v)
		}
		out[tier] = n
	}
	return out, nil
}

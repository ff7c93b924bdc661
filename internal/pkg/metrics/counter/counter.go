// Package counter keeps registration outcome counters in a Redis hash so
// every instance behind the load balancer adds to the same totals.
package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const registrationOutcomesKey = "registration:counters:outcomes"

// Counter increments named fields of one Redis hash.
type Counter struct {
	client *redis.Client
	key    string
}

// NewRegistrationOutcomes counts completion attempts per result.
func NewRegistrationOutcomes(client *redis.Client) *Counter {
	return &Counter{client: client, key: registrationOutcomesKey}
}

// Add increments field by one.
func (c *Counter) Add(ctx context.Context, field string) error {
	return c.client.HIncrBy(ctx, c.key, field, 1).Err()
}

// Snapshot returns the current totals.
func (c *Counter) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

// Drain returns the totals and resets them. The hash is renamed first so
// increments arriving during the read land in a fresh hash.
func (c *Counter) Drain(ctx context.Context) (map[string]int64, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", c.key, time.Now().UnixNano())
	if err := c.client.Rename(ctx, c.key, tmpKey).Err(); err != nil {
		if err.Error() == "ERR no such key" {
			return map[string]int64{}, nil
		}
		return nil, err
	}
	defer c.client.Del(ctx, tmpKey)

	data, err := c.client.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parse(data), nil
}

// Fields returns the keys of totals in stable order.
func Fields(totals map[string]int64) []string {
	out := make([]string, 0, len(totals))
	for k := range totals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func parse(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}

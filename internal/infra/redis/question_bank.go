package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"livequiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the ordered question bank from a backing store.
type QuestionLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// BankCache keeps the question bank in a Redis hash and falls back to the
// loader on cache miss. Each question is stored as:
// HSET quiz:questions {ordinal} {json}
type BankCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const bankKey = "quiz:questions"

func NewBankCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) GetBank(ctx context.Context) ([]domain.Question, error) {
	cached, err := c.client.HGetAll(ctx, bankKey).Result()
	if err == nil && len(cached) > 0 {
		return bankFromCache(cached)
	}

	result, err, _ := c.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, bankKey).Result()
		if err == nil && len(cached) > 0 {
			bank, err := bankFromCache(cached)
			if err != nil {
				return nil, err
			}
			return bank, nil
		}

		bank, err := c.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}

		pipe := c.client.Pipeline()
		for _, q := range bank {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, bankKey, strconv.Itoa(q.Ordinal), raw)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, bankKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func bankFromCache(cached map[string]string) ([]domain.Question, error) {
	bank := make([]domain.Question, 0, len(cached))
	for _, raw := range cached {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, err
		}
		bank = append(bank, q)
	}
	sort.Slice(bank, func(i, j int) bool { return bank[i].Ordinal < bank[j].Ordinal })
	return bank, nil
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

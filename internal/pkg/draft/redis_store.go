package draft

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyTTL lets Redis purge drafts nobody came back for. It is longer than
// MaxAge so expiry is always decided by IsExpired on read.
const keyTTL = MaxAge + time.Hour

// RedisStore keeps drafts as JSON strings in Redis.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a store on an injected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, scope string, d *RegistrationDraft) error {
	return s.put(ctx, PendingKey(scope), d)
}

func (s *RedisStore) SaveWizard(ctx context.Context, scope string, d *RegistrationDraft) error {
	return s.put(ctx, WizardKey(scope), d)
}

func (s *RedisStore) Load(ctx context.Context, scope string) (*RegistrationDraft, error) {
	return s.get(ctx, PendingKey(scope))
}

func (s *RedisStore) LoadWizard(ctx context.Context, scope string) (*RegistrationDraft, error) {
	return s.get(ctx, WizardKey(scope))
}

// Clear removes both the pending and the wizard draft of the scope.
func (s *RedisStore) Clear(ctx context.Context, scope string) error {
	return s.client.Del(ctx, PendingKey(scope), WizardKey(scope)).Err()
}

func (s *RedisStore) put(ctx context.Context, key string, d *RegistrationDraft) error {
	raw, err := encode(d, s.now())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, keyTTL).Err()
}

func (s *RedisStore) get(ctx context.Context, key string) (*RegistrationDraft, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return decode(raw)
}

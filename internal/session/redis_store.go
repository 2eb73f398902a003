package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps each session in a hash with an expiry
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a RedisStore on top of an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func key(id string) string {
	return keyPrefix + id
}

func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	k := key(s.ID)

	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, k, map[string]interface{}{
		"user_id":       s.UserID,
		"mode":          string(s.Mode),
		"created_at":    s.CreatedAt.UnixMilli(),
		"last_activity": s.LastActivity.UnixMilli(),
	})
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	fields, err := r.redis.HGetAll(ctx, key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeSession(id, fields)
}

// touchScript refreshes last_activity and the expiry only if the hash exists
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "last_activity", ARGV[1])
if tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

func (r *RedisStore) Touch(ctx context.Context, s *Session, ttl time.Duration) error {
	n, err := touchScript.Run(ctx, r.redis, []string{key(s.ID)},
		s.LastActivity.UnixMilli(), ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, key(id)).Err()
}

func decodeSession(id string, fields map[string]string) (*Session, error) {
	userID, err := strconv.ParseUint(fields["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: user_id: %w", id, err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: created_at: %w", id, err)
	}
	last, err := strconv.ParseInt(fields["last_activity"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: last_activity: %w", id, err)
	}

	return &Session{
		ID:           id,
		UserID:       uint(userID),
		Mode:         Mode(fields["mode"]),
		CreatedAt:    time.UnixMilli(created),
		LastActivity: time.UnixMilli(last),
	}, nil
}

package consultation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore backs the session store with Redis. Sessions and diagnosis sets
// are JSON values; the conversation log is a Redis list, which preserves
// append order.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string      { return "session:" + id }
func conversationKey(id string) string { return "conversation:" + id }
func diagnosesKey(id string) string    { return "diagnoses:" + id }

func (r *redisStore) Save(ctx context.Context, s *Session) error {
	existing, err := r.Get(ctx, s.ID)
	if err == nil {
		s.CreatedAt = existing.CreatedAt
	} else if err != ErrNotFound {
		return err
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()

	val, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.ID), val, r.ttl).Err()
}

func (r *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, err
	}

	// Refresh TTL on read so an active consultation does not expire.
	_ = r.client.Expire(ctx, sessionKey(id), r.ttl).Err()

	return &s, nil
}

func (r *redisStore) AppendEntry(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := conversationKey(e.SessionID)
	if err := r.client.RPush(ctx, key, val).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.ttl).Err()
}

func (r *redisStore) Conversation(ctx context.Context, sessionID string) ([]Entry, error) {
	vals, err := r.client.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *redisStore) SaveDiagnoses(ctx context.Context, sessionID string, ds []DiagnosisCandidate) error {
	key := diagnosesKey(sessionID)
	for _, d := range ds {
		val, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := r.client.RPush(ctx, key, val).Err(); err != nil {
			return err
		}
	}
	return r.client.Expire(ctx, key, r.ttl).Err()
}

func (r *redisStore) Diagnoses(ctx context.Context, sessionID string) ([]DiagnosisCandidate, error) {
	vals, err := r.client.LRange(ctx, diagnosesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]DiagnosisCandidate, 0, len(vals))
	for _, v := range vals {
		var d DiagnosisCandidate
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *redisStore) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *redisStore) Close() error { return r.client.Close() }

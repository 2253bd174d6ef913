package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

// saveScript writes the session blob, indexes it and stretches the index
// TTL to cover it. The index TTL only ever grows.
var saveScript = redis.NewScript(`
local ttl = tonumber(ARGV[2])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
redis.call('SADD', KEYS[2], ARGV[3])
if redis.call('PTTL', KEYS[2]) < ttl then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`)

// SessionRepo keeps sessions in Redis. Each session is a JSON blob under
// <prefix>:<id> whose key TTL ends at ValidUntil, and every user has a set
// <prefix>:user:<user_id> indexing their session ids.
type SessionRepo struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewSessionRepo(rdb *redis.Client, prefix string) *SessionRepo {
	if prefix == "" {
		prefix = "sess"
	}
	return &SessionRepo{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *SessionRepo) key(id string) string         { return r.prefix + ":" + id }
func (r *SessionRepo) userKey(userID string) string { return r.prefix + ":user:" + userID }

// Save stores a new session. Sessions already past ValidUntil are rejected.
func (r *SessionRepo) Save(ctx context.Context, s model.Session) error {
	ttl := s.ValidUntil.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	keys := []string{r.key(s.ID), r.userKey(s.UserID)}
	return saveScript.Run(ctx, r.rdb, keys, data, ms, s.ID).Err()
}

// Get loads a session; ErrNotFound if absent or evicted.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.Session, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

// Delete removes a session and its index entry. Deleting a missing session
// is not an error.
func (r *SessionRepo) Delete(ctx context.Context, s model.Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(s.ID))
		pipe.SRem(ctx, r.userKey(s.UserID), s.ID)
		return nil
	})
	return err
}

// ListForUser returns the user's live sessions, newest first. Index entries
// whose session already expired are pruned on the way.
func (r *SessionRepo) ListForUser(ctx context.Context, userID string) ([]model.Session, error) {
	userKey := r.userKey(userID)
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.Session, 0, len(vals))
	var stale []any
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s model.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, userKey, stale...).Err()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteAllForUser removes every session of the user. A session saved
// between the SMEMBERS and the DEL survives until its own TTL.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := r.userKey(userID)
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	return err
}

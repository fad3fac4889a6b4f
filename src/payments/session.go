package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var ErrSessionExists = errors.New("payment session already exists")

// Session is the snapshot stored between checkout initiation and the terminal
// gateway outcome. It is keyed by the merchant order reference.
type Session struct {
	Reference      string          `json:"reference"`
	UserID         *uint           `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description,omitempty"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	GatewayOrderID string          `json:"noon_order_id"`
	CreatedAt      time.Time       `json:"created_at"`
	TTL            time.Duration   `json:"ttl"`
}

// Expired reports whether the session is past CreatedAt+TTL at now.
func (s *Session) Expired(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return !now.Before(s.CreatedAt.Add(s.TTL))
}

// SessionStore holds payment sessions. Peek and Take return nil without error
// when the session is absent or expired. Take removes the entry atomically, so
// of two concurrent callers only one receives the session.
type SessionStore interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	Peek(ctx context.Context, reference string) (*Session, error)
	Take(ctx context.Context, reference string) (*Session, error)
	Delete(ctx context.Context, reference string) error
}

func sessionKey(reference string) string {
	return fmt.Sprintf("payment::session:%s", reference)
}

type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (r *RedisSessionStore) Put(ctx context.Context, s Session, ttl time.Duration) error {
	s.TTL = ttl
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.Reference), b, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (r *RedisSessionStore) decode(b []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *RedisSessionStore) Peek(ctx context.Context, reference string) (*Session, error) {
	b, err := r.client.Get(ctx, sessionKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.decode(b)
}

func (r *RedisSessionStore) Take(ctx context.Context, reference string) (*Session, error) {
	b, err := r.client.GetDel(ctx, sessionKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.decode(b)
}

func (r *RedisSessionStore) Delete(ctx context.Context, reference string) error {
	return r.client.Del(ctx, sessionKey(reference)).Err()
}

// MemorySessionStore keeps sessions in process. Used locally when Redis is not
// reachable and in tests.
type MemorySessionStore struct {
	mu    sync.Mutex
	items map[string]Session
	now   func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{items: map[string]Session{}, now: time.Now}
}

// SetClock overrides the store's time source.
func (m *MemorySessionStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemorySessionStore) Put(_ context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.items[s.Reference]; ok && !cur.Expired(m.now()) {
		return ErrSessionExists
	}
	s.TTL = ttl
	m.items[s.Reference] = s
	return nil
}

func (m *MemorySessionStore) Peek(_ context.Context, reference string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[reference]
	if !ok || s.Expired(m.now()) {
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySessionStore) Take(_ context.Context, reference string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[reference]
	if !ok {
		return nil, nil
	}
	delete(m.items, reference)
	if s.Expired(m.now()) {
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, reference)
	return nil
}

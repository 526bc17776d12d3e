package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-peers/core"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix     = "peers"
	registrationsHash = "registrations"
	registeredValue   = "1"
	unregisteredValue = "0"
)

// Storage keeps every registration flag in one redis hash keyed by peer id.
type Storage struct {
	mu     sync.Mutex
	client redis.Cmdable
	key    string
}

type Option func(*Storage)

// WithPrefix sets the namespace used for the registrations hash.
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		prefix = strings.Trim(strings.TrimSpace(prefix), ":")
		if prefix != "" {
			s.key = HashKey(prefix)
		}
	}
}

func NewStorage(client redis.Cmdable, opts ...Option) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	storage := &Storage{client: client, key: HashKey(DefaultPrefix)}
	for _, opt := range opts {
		if opt != nil {
			opt(storage)
		}
	}
	return storage, nil
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping failed: %w", err)
	}
	return client, nil
}

func HashKey(prefix string) string {
	return prefix + ":" + registrationsHash
}

func (s *Storage) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

func (s *Storage) Backend() string {
	return "redis"
}

// Init only checks connectivity; the hash is created on first write.
func (s *Storage) Init(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Contains(ctx context.Context, peerID string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("redisstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.client.HGet(ctx, s.key, peerID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	registered, err := decodeFlag(value)
	if err != nil {
		return false, core.CorruptedRecord(peerID, err.Error())
	}
	return registered, nil
}

func (s *Storage) Upsert(ctx context.Context, peerID string, isRegistered bool) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.HSet(ctx, s.key, peerID, encodeFlag(isRegistered)).Err()
}

func (s *Storage) Delete(ctx context.Context, peerID string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redisstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.HDel(ctx, s.key, peerID).Err()
}

func (s *Storage) List(ctx context.Context) ([]core.RegistrationRecord, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("redisstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.RegistrationRecord, 0, len(values))
	for peerID, value := range values {
		registered, decodeErr := decodeFlag(value)
		if decodeErr != nil {
			return nil, core.CorruptedRecord(peerID, decodeErr.Error())
		}
		if registered {
			out = append(out, core.RegistrationRecord{PeerID: peerID, IsRegistered: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeerID < out[j].PeerID
	})
	return out, nil
}

func encodeFlag(registered bool) string {
	if registered {
		return registeredValue
	}
	return unregisteredValue
}

func decodeFlag(value string) (bool, error) {
	switch value {
	case registeredValue:
		return true, nil
	case unregisteredValue:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected registration value %q", value)
	}
}

var (
	_ core.Storage = (*Storage)(nil)
	_ core.Lister  = (*Storage)(nil)
)

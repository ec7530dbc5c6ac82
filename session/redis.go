package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hazyhaar/docqa/docpipe"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"` // default "docqa:session:"
	TTL       time.Duration `yaml:"ttl"`        // 0 = no expiry
}

// Redis stores each batch as one JSON value written with a single SET, so
// a reader sees either the old or the new batch.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and checks the connection with PING.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "docqa:session:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: redis ping %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Get(ctx context.Context, id string) ([]docpipe.ParsedDocument, bool, error) {
	if id == "" {
		return nil, false, ErrEmptyID
	}
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: redis get: %w", err)
	}
	var docs []docpipe.ParsedDocument
	if err := json.Unmarshal(val, &docs); err != nil {
		return nil, false, fmt.Errorf("session: decode %s: %w", id, err)
	}
	return docs, true, nil
}

func (r *Redis) Replace(ctx context.Context, id string, docs []docpipe.ParsedDocument) error {
	if id == "" {
		return ErrEmptyID
	}
	if docs == nil {
		docs = []docpipe.ParsedDocument{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

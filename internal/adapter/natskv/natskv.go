// Package natskv implements storage.KV on a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// Store is a KV backed by one JetStream bucket.
type Store struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
	log    *slog.Logger
}

// Open connects to url and creates or updates bucket.
func Open(ctx context.Context, url, bucket string, logger *slog.Logger) (*Store, error) {
	conn, err := nats.Connect(url,
		nats.Name("hideout"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect %s: %w", url, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natskv: jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Scribble Hideout flags and sessions",
		History:     1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natskv: bucket %s: %w", bucket, err)
	}

	return &Store{
		conn:   conn,
		bucket: kv,
		log:    logger.With("adapter", "natskv", "bucket", bucket),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("natskv: get %s: %w", key, errors.Join(domain.ErrUnavailable, err))
	}
	return entry.Value(), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.bucket.Put(ctx, key, value); err != nil {
		return fmt.Errorf("natskv: put %s: %w", key, errors.Join(domain.ErrUnavailable, err))
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natskv: delete %s: %w", key, errors.Join(domain.ErrUnavailable, err))
	}
	return nil
}

// Ping reports whether the connection is up.
func (s *Store) Ping() error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("natskv: %s", s.conn.Status())
	}
	return nil
}

// Close drains the connection.
func (s *Store) Close() {
	if err := s.conn.Drain(); err != nil {
		s.log.Warn("natskv drain failed", slog.String("error", err.Error()))
		s.conn.Close()
	}
}

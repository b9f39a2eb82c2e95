package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/pasarbot/internal/db"
)

const (
	keyPrefix  = "pasarbot:doc:"
	maxRetries = 10
)

var _ db.DocumentStore = (*Client)(nil)

// Client stores every document under its own key and runs transactions as
// optimistic WATCH/MULTI/EXEC over all document keys.
type Client struct {
	rdb   *redis.Client
	mutex sync.Mutex
}

func NewRedisClient(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func key(doc string) string {
	return keyPrefix + doc
}

func getDocument(ctx context.Context, cmd redis.Cmdable, doc string, v any) error {
	body, err := cmd.Get(ctx, key(doc)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load document %s: %w", doc, err)
	}
	db.Decode(doc, body, v)
	return nil
}

func (c *Client) Read(ctx context.Context, doc string, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return getDocument(ctx, c.rdb, doc, v)
}

func (c *Client) Write(ctx context.Context, doc string, v any) error {
	body, err := db.Encode(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc, err)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err := c.rdb.Set(ctx, key(doc), body, 0).Err(); err != nil {
		return fmt.Errorf("save document %s: %w", doc, err)
	}
	return nil
}

func (c *Client) Transact(ctx context.Context, fn func(tx db.Tx) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	keys := make([]string, 0, len(db.Documents))
	for _, doc := range db.Documents {
		keys = append(keys, key(doc))
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.rdb.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &docTx{ctx: ctx, rtx: rtx, pending: map[string][]byte{}}
			if err := fn(tx); err != nil {
				return err
			}
			if len(tx.pending) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for doc, body := range tx.pending {
					pipe.Set(ctx, key(doc), body, 0)
				}
				return nil
			})
			return err
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			log.WithField("component", "store").WithField("attempt", attempt).Debug("document conflict, retrying")
			continue
		}
		return err
	}
	return fmt.Errorf("transact: %w after %d attempts", redis.TxFailedErr, maxRetries)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

type docTx struct {
	ctx     context.Context
	rtx     *redis.Tx
	pending map[string][]byte
}

func (t *docTx) Load(doc string, v any) error {
	if body, ok := t.pending[doc]; ok {
		db.Decode(doc, body, v)
		return nil
	}
	return getDocument(t.ctx, t.rtx, doc, v)
}

func (t *docTx) Save(doc string, v any) error {
	body, err := db.Encode(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc, err)
	}
	t.pending[doc] = body
	return nil
}

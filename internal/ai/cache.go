package ai

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	"ai-tutor-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "emb:"

// Cached stores vectors in Redis keyed by model and text. Redis failures are
// logged and the call falls through to the wrapped embedder.
type Cached struct {
	next Embedder
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCached(next Embedder, rdb *redis.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cached) Dimension() int { return c.next.Dimension() }
func (c *Cached) Model() string  { return c.next.Model() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if vec, ok := decodeVector(raw, c.next.Dimension()); ok {
			return vec, nil
		}
		logger.Warn("Discarding malformed cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("Embedding cache read failed", "error", err)
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
		logger.Warn("Embedding cache write failed", "error", err)
	}
	return vec, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.next.Model() + "|" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte, dim int) ([]float32, bool) {
	if len(raw) != 4*dim {
		return nil, false
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, true
}

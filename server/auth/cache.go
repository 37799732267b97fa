package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/indieinfra/quill/config"
)

const defaultCacheTTL = 5 * time.Minute

// Verifier validates access tokens against the token endpoint, with an
// optional Redis cache in front to avoid introspecting the same token on
// every request.
type Verifier struct {
	cfg   *config.Config
	cache *redis.Client
	ttl   time.Duration
}

func NewVerifier(cfg *config.Config) *Verifier {
	v := &Verifier{cfg: cfg, ttl: defaultCacheTTL}

	if cc := cfg.Micropub.TokenCache; cc != nil {
		v.cache = redis.NewClient(&redis.Options{
			Addr:     cc.Address,
			Password: cc.Password,
			DB:       cc.DB,
		})

		if cc.TTLSeconds > 0 {
			v.ttl = time.Duration(cc.TTLSeconds) * time.Second
		}
	}

	return v
}

// Verify returns the token details for a valid token, or nil when the token
// endpoint rejects it. Only successful verifications are cached.
func (v *Verifier) Verify(ctx context.Context, token string) (*TokenDetails, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	key := cacheKey(token)

	if v.cache != nil {
		if details := v.cacheGet(ctx, key); details != nil {
			return details, nil
		}
	}

	details, err := VerifyAccessToken(ctx, v.cfg, token)
	if err != nil || details == nil {
		return details, err
	}

	if v.cache != nil {
		v.cachePut(ctx, key, details)
	}

	return details, nil
}

func (v *Verifier) cacheGet(ctx context.Context, key string) *TokenDetails {
	raw, err := v.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("warning: token cache read failed: %v", err)
		}
		return nil
	}

	details := &TokenDetails{}
	if err := json.Unmarshal(raw, details); err != nil {
		log.Printf("warning: discarding corrupt token cache entry: %v", err)
		v.cache.Del(ctx, key)
		return nil
	}

	return details
}

func (v *Verifier) cachePut(ctx context.Context, key string, details *TokenDetails) {
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}

	if err := v.cache.Set(ctx, key, raw, v.ttl).Err(); err != nil {
		log.Printf("warning: token cache write failed: %v", err)
	}
}

// cacheKey hashes the token so raw credentials never appear as Redis keys.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "quill:token:" + hex.EncodeToString(sum[:])
}

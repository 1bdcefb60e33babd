package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// The bucket state lives in one hash per key. Redis' own clock is used so
// every API instance refills the same way.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

// Redis is a limiter shared by every API instance.
type Redis struct {
	client *redis.Client
	script *redis.Script
	prefix string
	cfg    Config
}

// NewRedis creates a limiter storing buckets under prefix.
func NewRedis(client *redis.Client, prefix string, cfg Config) (*Redis, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Redis{client: client, script: redis.NewScript(tokenBucketScript), prefix: prefix, cfg: cfg}, nil
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	res, err := r.script.Run(ctx, r.client, []string{r.prefix + ":ratelimit:" + key},
		r.cfg.Rate, r.cfg.Burst, int64(r.cfg.bucketTTL()/time.Millisecond)).Slice()
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, errors.New("invalid rate limit script response")
	}

	allowed, _ := res[0].(int64)
	tokens, err := strconv.ParseFloat(toString(res[1]), 64)
	if err != nil {
		return nil, err
	}

	out := &Result{Allowed: allowed == 1, Limit: r.cfg.Burst, Remaining: int(tokens)}
	if !out.Allowed {
		out.RetryAfter = r.cfg.retryAfter(tokens)
	}
	return out, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "otp:"

// SaveOTP stores code under every phone spelling with the same expiry.
func (s *Service) SaveOTP(ctx context.Context, code string, ttl time.Duration, phones ...string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pipe := s.Redis.TxPipeline()
	for _, phone := range phones {
		pipe.Set(ctx, otpKeyPrefix+phone, code, ttl)
	}
	_, err := pipe.Exec(ctx)
	return storeErr(err)
}

// consumeOTPScript deletes every key when KEYS[1] holds ARGV[1].
var consumeOTPScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  redis.call("DEL", unpack(KEYS))
  return 1
end
return 0
`)

// ConsumeOTP reports whether code is stored under phones[0], the canonical
// spelling, and if so removes it together with the remaining aliases. Check
// and delete run as one Redis script, so a code verifies at most once.
func (s *Service) ConsumeOTP(ctx context.Context, code string, phones ...string) (bool, error) {
	if len(phones) == 0 || code == "" {
		return false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := consumeOTPScript.Run(ctx, s.Redis, otpKeys(phones), code).Int()
	if err != nil {
		return false, storeErr(err)
	}
	return n == 1, nil
}

func (s *Service) DeleteOTP(ctx context.Context, phones ...string) error {
	if len(phones) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return storeErr(s.Redis.Del(ctx, otpKeys(phones)...).Err())
}

func otpKeys(phones []string) []string {
	keys := make([]string, len(phones))
	for i, phone := range phones {
		keys[i] = otpKeyPrefix + phone
	}
	return keys
}

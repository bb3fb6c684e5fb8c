package velocity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	ipKeyPattern     = "velocity:ip:%s"
	prefixKeyPattern = "velocity:prefix:%s"
	memberSeparator  = "|"
)

// PrefixCounts is the scanned/matched split of a prefix partition read:
// Scanned is every live record under the prefix whatever its age (distributed
// abuse across a number range), Matched the subset for the exact phone number
// inserted within the recency window.
type PrefixCounts struct {
	Scanned int64
	Matched int64
}

//go:generate mockery --name=Store --dir=. --output=../../../mocks --filename=velocity_store_mock.go --case=underscore --with-expecter
type Store interface {
	CountByIP(ctx context.Context, ip, requestID string) (int64, error)
	CountByPhonePrefix(ctx context.Context, prefix, phone, requestID string) (PrefixCounts, error)
	RecordRequest(ctx context.Context, ip, prefix, phone, requestID string) error
}

type Config struct {
	TTL    time.Duration
	Window time.Duration
}

type StoreOpts struct {
	TimeProvider func() time.Time
}

type store struct {
	redis        *redis.Client
	cfg          Config
	logger       *logrus.Logger
	timeProvider func() time.Time
}

func NewStore(redisClient *redis.Client, cfg Config, logger *logrus.Logger, opts *StoreOpts) Store {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &store{
		redis:        redisClient,
		cfg:          cfg,
		logger:       logger,
		timeProvider: timeProvider,
	}
}

// Records are scored by expireAt = insertionTime + TTL, so recency filtering
// is expireAt > nowExpireAt - window, which is algebraically the same as
// insertionTime > now - window. The TTL is constant, which is what makes
// expireAt a valid proxy for insertion time; "not yet expired" would be a
// different, much wider predicate.
func (s *store) recencyThreshold(now time.Time) int64 {
	return s.expireAt(now) - int64(s.cfg.Window/time.Second)
}

func (s *store) expireAt(now time.Time) int64 {
	return now.Add(s.cfg.TTL).Unix()
}

func (s *store) CountByIP(ctx context.Context, ip, requestID string) (int64, error) {
	now := s.timeProvider()
	key := fmt.Sprintf(ipKeyPattern, ip)

	members, err := s.redis.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(s.recencyThreshold(now), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read ip velocity for %s: %w", ip, err)
	}

	var count int64
	for _, member := range members {
		// A request must never count its own concurrent write.
		if member == requestID {
			continue
		}
		count++
	}
	return count, nil
}

// CountByPhonePrefix reads the whole prefix partition once. Scanned is every
// live record under the prefix regardless of age, so slow distributed abuse
// across a number range stays visible for the full TTL; Matched additionally
// requires the exact phone and an insertion within the recency window.
func (s *store) CountByPhonePrefix(ctx context.Context, prefix, phone, requestID string) (PrefixCounts, error) {
	now := s.timeProvider()
	key := fmt.Sprintf(prefixKeyPattern, prefix)

	members, err := s.redis.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return PrefixCounts{}, fmt.Errorf("failed to read prefix velocity for %s: %w", prefix, err)
	}

	recent := float64(s.recencyThreshold(now))

	var counts PrefixCounts
	for _, member := range members {
		raw, _ := member.Member.(string)
		parts := strings.SplitN(raw, memberSeparator, 2)
		if parts[0] == requestID {
			continue
		}
		counts.Scanned++
		if member.Score > recent && len(parts) == 2 && parts[1] == phone {
			counts.Matched++
		}
	}
	return counts, nil
}

func (s *store) RecordRequest(ctx context.Context, ip, prefix, phone, requestID string) error {
	now := s.timeProvider()
	expireAt := s.expireAt(now)
	nowStr := strconv.FormatInt(now.Unix(), 10)

	ipKey := fmt.Sprintf(ipKeyPattern, ip)
	prefixKey := fmt.Sprintf(prefixKeyPattern, prefix)

	pipe := s.redis.TxPipeline()

	pipe.ZRemRangeByScore(ctx, ipKey, "0", nowStr)
	pipe.ZAdd(ctx, ipKey, &redis.Z{
		Score:  float64(expireAt),
		Member: requestID,
	})
	pipe.Expire(ctx, ipKey, s.cfg.TTL)

	pipe.ZRemRangeByScore(ctx, prefixKey, "0", nowStr)
	pipe.ZAdd(ctx, prefixKey, &redis.Z{
		Score:  float64(expireAt),
		Member: requestID + memberSeparator + phone,
	})
	pipe.Expire(ctx, prefixKey, s.cfg.TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request %s: %w", requestID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"expire_at":  expireAt,
	}).Debug("recorded request for velocity accounting")

	return nil
}

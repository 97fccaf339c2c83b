package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/stock_trading_sim/config"
	"github.com/KotFed0t/stock_trading_sim/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSession maps opaque session tokens to user ids. Tokens expire after
// cfg.SessionExpiration; every successful Get refreshes the TTL.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisSession) CreateSession(ctx context.Context, userID int64) (token string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("CreateSession start", slog.String("rqID", rqID))

	token = uuid.NewString()

	_, err = s.redis.Set(ctx, sessionKey(token), userID, s.cfg.SessionExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("CreateSession completed", slog.String("rqID", rqID))

	return token, nil
}

func (s *RedisSession) GetSession(ctx context.Context, token string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSession start", slog.String("rqID", rqID))

	res, err := s.redis.GetEx(ctx, sessionKey(token), s.cfg.SessionExpiration).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		slog.Error("failed on redis.GetEx", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return 0, err
	}

	userID, err = strconv.ParseInt(res, 10, 64)
	if err != nil {
		slog.Error("can't parse userID from session value", slog.String("rqID", rqID), slog.String("value", res))
		return 0, err
	}

	slog.Debug("GetSession completed", slog.String("rqID", rqID))

	return userID, nil
}

func (s *RedisSession) DeleteSession(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("DeleteSession start", slog.String("rqID", rqID))

	_, err := s.redis.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("DeleteSession completed", slog.String("rqID", rqID))

	return nil
}

package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/neurosync-os/server/internal/agent/model"
	errx "github.com/neurosync-os/server/internal/core/error"
	logx "github.com/neurosync-os/server/pkg/logger"
)

// RedisDocumentRepository stores the ingested record text per student.
// Plain SET/GET, last write wins, no versioning. Documents are kept without
// TTL so a case file survives session expiry.
type RedisDocumentRepository struct {
	rdb redis.Cmdable
}

func NewRedisDocumentRepository(rdb redis.Cmdable) *RedisDocumentRepository {
	return &RedisDocumentRepository{rdb: rdb}
}

func (r *RedisDocumentRepository) documentKey(studentID string) string {
	return fmt.Sprintf("document:%s:text", studentID)
}

func (r *RedisDocumentRepository) SaveDocument(ctx context.Context, studentID string, text string) error {
	key := r.documentKey(studentID)
	if err := r.rdb.Set(ctx, key, text, 0).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save document text to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisDocumentRepository) LoadDocument(ctx context.Context, studentID string) (string, error) {
	key := r.documentKey(studentID)
	text, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load document text from redis")
		return "", errx.WrapRedis(err)
	}
	return text, nil
}

var _ model.DocumentRepository = (*RedisDocumentRepository)(nil)

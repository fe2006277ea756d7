package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
	"github.com/xxxsen/bbtalk/internal/repo"
)

// BindingService answers "may this user post" on every privileged command,
// caching the stored flag per user so the hot path skips the database.
type BindingService struct {
	bindings *repo.BindingRepo
	cache    *expirable.LRU[string, bool]
	key      string
}

func NewBindingService(bindings *repo.BindingRepo, key string, cacheSize int, cacheTTL time.Duration) *BindingService {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &BindingService{
		bindings: bindings,
		cache:    expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL),
		key:      key,
	}
}

func (s *BindingService) IsBound(ctx context.Context, userID string) (bool, error) {
	if bound, ok := s.cache.Get(userID); ok {
		return bound, nil
	}
	binding, err := s.bindings.Get(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	s.cache.Add(userID, binding.IsBinding)
	return binding.IsBinding, nil
}

// Bind verifies the shared secret and flips the binding record on. The
// return value never reveals whether a record already existed.
func (s *BindingService) Bind(ctx context.Context, userID, suppliedKey string) (bool, error) {
	if subtle.ConstantTimeCompare([]byte(suppliedKey), []byte(s.key)) != 1 {
		logutil.GetLogger(ctx).Warn("binding verification failed", zap.String("user_id", userID))
		return false, nil
	}
	if err := s.bindings.Upsert(ctx, userID, true, time.Now().UnixMilli()); err != nil {
		return false, err
	}
	s.cache.Remove(userID)
	return true, nil
}

// Unbind destroys the binding record, reporting whether one existed.
func (s *BindingService) Unbind(ctx context.Context, userID string) (bool, error) {
	existed, err := s.bindings.Delete(ctx, userID)
	if err != nil {
		return false, err
	}
	s.cache.Remove(userID)
	return existed, nil
}

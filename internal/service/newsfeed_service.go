package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Lee_Social/internal/metrics"
	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// 没抢到回源锁时的等待时间
const backfillWait = 50 * time.Millisecond

// NewsfeedService 写扩散：发布时把帖子 id 推进每个好友的信息流
type NewsfeedService struct {
	graph       GraphStore
	cache       FeedCache
	lock        Locker
	posts       *mysql.PostRepository
	batchSize   int
	parallelism int
}

func NewNewsfeedService(graph GraphStore, cache FeedCache, lock Locker, posts *mysql.PostRepository, batchSize, parallelism int) *NewsfeedService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &NewsfeedService{
		graph:       graph,
		cache:       cache,
		lock:        lock,
		posts:       posts,
		batchSize:   batchSize,
		parallelism: parallelism,
	}
}

// PushToNewsFeed 查出作者全部好友后推送，没有好友直接返回
func (s *NewsfeedService) PushToNewsFeed(ctx context.Context, userID, postID uint64) error {
	friends, err := s.graph.FindAllFriendIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("load friends of %d: %w", userID, err)
	}
	metrics.FanoutRecipients.Observe(float64(len(friends)))
	if len(friends) == 0 {
		return nil
	}
	return s.PushToFeeds(ctx, friends, postID)
}

// PushToFeeds 按批并发推送，每个接收者的 LPUSH+LTRIM 在同一个事务块里
func (s *NewsfeedService) PushToFeeds(ctx context.Context, personIDs []uint64, postID uint64) error {
	if len(personIDs) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for start := 0; start < len(personIDs); start += s.batchSize {
		chunk := personIDs[start:min(start+s.batchSize, len(personIDs))]
		g.Go(func() error {
			if err := s.cache.PushToFeeds(ctx, chunk, postID); err != nil {
				metrics.FanoutPushes.WithLabelValues("failed").Add(float64(len(chunk)))
				return fmt.Errorf("push post %d to %d feeds: %w", postID, len(chunk), err)
			}
			metrics.FanoutPushes.WithLabelValues("ok").Add(float64(len(chunk)))
			return nil
		})
	}
	return g.Wait()
}

// FetchNewsfeed 按缓存列表顺序返回帖子。视图未命中时回源并回填；
// 已删除的帖子从列表里移除，未处于 published 的帖子不展示
func (s *NewsfeedService) FetchNewsfeed(ctx context.Context, userID uint64) ([]model.PostView, error) {
	if userID == 0 {
		return nil, pkg.NewValidationError("invalid person id")
	}
	ids, err := s.cache.GetFeed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read newsfeed: %w", err)
	}

	views := make([]*model.PostView, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			v, err := s.loadView(gctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.PostViewLookups.WithLabelValues("gone").Inc()
				if rmErr := s.cache.RemoveFromFeed(gctx, userID, id); rmErr != nil {
					pkg.L().Warn("remove stale feed entry failed",
						zap.Uint64("person_id", userID), zap.Uint64("post_id", id), zap.Error(rmErr))
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("load post %d: %w", id, err)
			}
			views[i] = v
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.PostView, 0, len(views))
	for _, v := range views {
		if v == nil || v.Status != model.PostStatusPublished {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

// CachePostView 发布后预热视图
func (s *NewsfeedService) CachePostView(ctx context.Context, postID uint64) {
	if _, err := s.backfill(ctx, postID); err != nil {
		pkg.L().Warn("warm post view failed", zap.Uint64("post_id", postID), zap.Error(err))
	}
}

// InvalidatePostView 内容、状态变化或删除后调用
func (s *NewsfeedService) InvalidatePostView(ctx context.Context, postID uint64) {
	if err := s.cache.DeletePostView(ctx, postID); err != nil {
		pkg.L().Warn("invalidate post view failed", zap.Uint64("post_id", postID), zap.Error(err))
	}
}

// loadView 先读缓存，miss 后抢锁回源，抢不到锁短暂等待再读一次
func (s *NewsfeedService) loadView(ctx context.Context, postID uint64) (*model.PostView, error) {
	if v, ok := s.cachedView(ctx, postID); ok {
		metrics.PostViewLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.PostViewLookups.WithLabelValues("miss").Inc()

	token := uuid.NewString()
	got, err := s.lock.Acquire(ctx, postID, token)
	if err != nil {
		pkg.L().Warn("acquire backfill lock failed", zap.Uint64("post_id", postID), zap.Error(err))
	}
	if got {
		defer func() {
			if err := s.lock.Release(ctx, postID, token); err != nil {
				pkg.L().Warn("release backfill lock failed", zap.Uint64("post_id", postID), zap.Error(err))
			}
		}()
		// 第二次检查
		if v, ok := s.cachedView(ctx, postID); ok {
			return v, nil
		}
		return s.backfill(ctx, postID)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(backfillWait):
	}
	if v, ok := s.cachedView(ctx, postID); ok {
		return v, nil
	}
	return s.backfill(ctx, postID)
}

func (s *NewsfeedService) cachedView(ctx context.Context, postID uint64) (*model.PostView, bool) {
	v, ok, err := s.cache.GetPostView(ctx, postID)
	if err != nil {
		pkg.L().Warn("read post view failed", zap.Uint64("post_id", postID), zap.Error(err))
		return nil, false
	}
	return v, ok
}

// backfill 从账本加载帖子和附件并写回缓存，写缓存失败不影响返回
func (s *NewsfeedService) backfill(ctx context.Context, postID uint64) (*model.PostView, error) {
	post, err := s.posts.FindWithAttachments(ctx, postID)
	if err != nil {
		return nil, err
	}
	v := post.ToView()
	if err = s.cache.SetPostView(ctx, v); err != nil {
		pkg.L().Warn("write post view failed", zap.Uint64("post_id", postID), zap.Error(err))
	}
	return v, nil
}

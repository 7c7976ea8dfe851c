package service

import (
	"context"
	"time"

	"Lee_Social/internal/model"
	graph "Lee_Social/internal/repository/neo4j"

	"github.com/cenkalti/backoff/v4"
)

// GraphStore 关系图的读写口，生产环境是 neo4j.GraphRepository
type GraphStore interface {
	MergePerson(ctx context.Context, personID uint64) error
	DetachDeletePerson(ctx context.Context, personID uint64) error
	MergeFriendship(ctx context.Context, a, b uint64) error
	DeleteFriendship(ctx context.Context, a, b uint64) error
	MergeBlock(ctx context.Context, a, b uint64) error
	DeleteBlock(ctx context.Context, a, b uint64) error
	RelationStatus(ctx context.Context, a, b uint64) (graph.RelationStatus, error)
	AreFriends(ctx context.Context, a, b uint64) (bool, error)
	FindAllFriendIDs(ctx context.Context, personID uint64) ([]uint64, error)
	FindFriendIDs(ctx context.Context, personID uint64, offset, limit int) ([]uint64, error)
	FindBlockedIDs(ctx context.Context, personID uint64) ([]uint64, error)
}

// FeedCache 信息流列表和帖子视图缓存，生产环境是 redis.FeedCacheRepository
type FeedCache interface {
	MaxSize() int
	PushToFeeds(ctx context.Context, personIDs []uint64, postID uint64) error
	GetFeed(ctx context.Context, personID uint64) ([]uint64, error)
	RemoveFromFeed(ctx context.Context, personID, postID uint64) error
	GetPostView(ctx context.Context, postID uint64) (*model.PostView, bool, error)
	SetPostView(ctx context.Context, v *model.PostView) error
	DeletePostView(ctx context.Context, postID uint64) error
}

// Locker 回源锁
type Locker interface {
	Acquire(ctx context.Context, postID uint64, token string) (bool, error)
	Release(ctx context.Context, postID uint64, token string) error
}

// Fanout 帖子发布后的推送动作
type Fanout interface {
	PushToNewsFeed(ctx context.Context, userID, postID uint64) error
}

// PostViews 帖子视图的预热和失效
type PostViews interface {
	CachePostView(ctx context.Context, postID uint64)
	InvalidatePostView(ctx context.Context, postID uint64)
}

// RetryPolicy 跨存储写（Graph Store）的重试参数
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	}
}

// Do 按策略重试 op，ctx 取消时立刻返回
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
	), p.MaxRetries)
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op()
	}, backoff.WithContext(b, ctx))
}

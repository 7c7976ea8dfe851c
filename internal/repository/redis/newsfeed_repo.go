package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Lee_Social/internal/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	NewsfeedKeyPrefix = "newsfeed"
	PostViewKeyPrefix = "post:view"
	LockKeyPrefix     = "lock:post:view"
	LockTTL           = 300 * time.Millisecond
)

// FeedCacheRepository 信息流列表 + 帖子物化视图
type FeedCacheRepository struct {
	rdb     *redis.Client
	maxSize int
	viewTTL time.Duration
}

func NewFeedCacheRepository(rdb *redis.Client, maxSize int, viewTTL time.Duration) *FeedCacheRepository {
	return &FeedCacheRepository{rdb: rdb, maxSize: maxSize, viewTTL: viewTTL}
}

func (r *FeedCacheRepository) feedKey(personID uint64) string {
	return fmt.Sprintf("%s:%d", NewsfeedKeyPrefix, personID)
}

func (r *FeedCacheRepository) viewKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", PostViewKeyPrefix, postID)
}

// MaxSize 单个信息流的容量
func (r *FeedCacheRepository) MaxSize() int {
	return r.maxSize
}

// PushToFeeds 对每个接收者执行 LPUSH + LTRIM。整批包在一个 MULTI/EXEC 里，
// 读方不会看到超出容量的中间状态
func (r *FeedCacheRepository) PushToFeeds(ctx context.Context, personIDs []uint64, postID uint64) error {
	if len(personIDs) == 0 {
		return nil
	}
	member := strconv.FormatUint(postID, 10)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range personIDs {
			k := r.feedKey(id)
			p.LPush(ctx, k, member)
			p.LTrim(ctx, k, 0, int64(r.maxSize-1))
		}
		return nil
	})
	return err
}

// GetFeed 按存储顺序（新的在前）读取帖子 id，无法解析的成员直接跳过
func (r *FeedCacheRepository) GetFeed(ctx context.Context, personID uint64) ([]uint64, error) {
	members, err := r.rdb.LRange(ctx, r.feedKey(personID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RemoveFromFeed 帖子已不存在时把它从该用户的列表里清掉
func (r *FeedCacheRepository) RemoveFromFeed(ctx context.Context, personID, postID uint64) error {
	return r.rdb.LRem(ctx, r.feedKey(personID), 0, strconv.FormatUint(postID, 10)).Err()
}

// GetPostView 读缓存视图，第二个返回值表示是否命中
func (r *FeedCacheRepository) GetPostView(ctx context.Context, postID uint64) (*model.PostView, bool, error) {
	raw, err := r.rdb.Get(ctx, r.viewKey(postID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v model.PostView
	if err = sonic.Unmarshal(raw, &v); err != nil {
		// 脏数据当作未命中，交给回源覆盖
		return nil, false, nil
	}
	return &v, true, nil
}

// SetPostView 回填帖子视图
func (r *FeedCacheRepository) SetPostView(ctx context.Context, v *model.PostView) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.viewKey(v.ID), raw, r.viewTTL).Err()
}

// DeletePostView 内容或状态变化后主动失效
func (r *FeedCacheRepository) DeletePostView(ctx context.Context, postID uint64) error {
	if err := r.rdb.Del(ctx, r.viewKey(postID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// DistLock 回源锁，避免同一帖子的缓存击穿时所有请求都打到 MySQL
type DistLock struct {
	rdb *redis.Client
}

func NewDistLock(rdb *redis.Client) *DistLock {
	return &DistLock{rdb: rdb}
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, postID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return l.rdb.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证只释放自己持有的锁
func (l *DistLock) Release(ctx context.Context, postID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}

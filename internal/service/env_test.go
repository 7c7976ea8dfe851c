package service_test

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/mysql/mysqltest"
	graph "Lee_Social/internal/repository/neo4j"
	"Lee_Social/internal/repository/redis"
	"Lee_Social/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errGraphDown = errors.New("graph unavailable")

type edge [2]uint64

func undirected(a, b uint64) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// fakeGraph 内存版 Graph Store
type fakeGraph struct {
	mu          sync.Mutex
	persons     map[uint64]bool
	friends     map[edge]bool
	blocks      map[edge]bool
	mergeCalls  int
	failFriends int  // 接下来多少次 MergeFriendship 失败
	failPersons bool // MergePerson/DetachDeletePerson 一律失败
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		persons: map[uint64]bool{},
		friends: map[edge]bool{},
		blocks:  map[edge]bool{},
	}
}

func (g *fakeGraph) MergePerson(_ context.Context, id uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPersons {
		return errGraphDown
	}
	g.persons[id] = true
	return nil
}

func (g *fakeGraph) DetachDeletePerson(_ context.Context, id uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPersons {
		return errGraphDown
	}
	delete(g.persons, id)
	for e := range g.friends {
		if e[0] == id || e[1] == id {
			delete(g.friends, e)
		}
	}
	for e := range g.blocks {
		if e[0] == id || e[1] == id {
			delete(g.blocks, e)
		}
	}
	return nil
}

func (g *fakeGraph) MergeFriendship(_ context.Context, a, b uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mergeCalls++
	if g.failFriends > 0 {
		g.failFriends--
		return errGraphDown
	}
	// 与 MATCH 语义一致：节点不存在时不写
	if g.persons[a] && g.persons[b] {
		g.friends[undirected(a, b)] = true
	}
	return nil
}

func (g *fakeGraph) DeleteFriendship(_ context.Context, a, b uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.friends, undirected(a, b))
	return nil
}

func (g *fakeGraph) MergeBlock(_ context.Context, a, b uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.persons[a] && g.persons[b] {
		g.blocks[edge{a, b}] = true
	}
	return nil
}

func (g *fakeGraph) DeleteBlock(_ context.Context, a, b uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocks, edge{a, b})
	return nil
}

func (g *fakeGraph) RelationStatus(_ context.Context, a, b uint64) (graph.RelationStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return graph.RelationStatus{
		Friends:   g.friends[undirected(a, b)],
		Blocks:    g.blocks[edge{a, b}],
		BlockedBy: g.blocks[edge{b, a}],
	}, nil
}

func (g *fakeGraph) AreFriends(_ context.Context, a, b uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.friends[undirected(a, b)], nil
}

func (g *fakeGraph) FindAllFriendIDs(_ context.Context, id uint64) ([]uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := []uint64{}
	for e := range g.friends {
		switch id {
		case e[0]:
			ids = append(ids, e[1])
		case e[1]:
			ids = append(ids, e[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (g *fakeGraph) FindFriendIDs(ctx context.Context, id uint64, offset, limit int) ([]uint64, error) {
	ids, _ := g.FindAllFriendIDs(ctx, id)
	if offset >= len(ids) {
		return []uint64{}, nil
	}
	return ids[offset:min(offset+limit, len(ids))], nil
}

func (g *fakeGraph) FindBlockedIDs(_ context.Context, id uint64) ([]uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := []uint64{}
	for e := range g.blocks {
		if e[0] == id {
			ids = append(ids, e[1])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (g *fakeGraph) befriend(a, b uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.friends[undirected(a, b)] = true
}

func (g *fakeGraph) friendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.friends)
}

// spyFanout 记录扇出和视图操作
type spyFanout struct {
	mu          sync.Mutex
	pushes      []uint64
	cached      []uint64
	invalidated []uint64
	err         error
}

func (s *spyFanout) PushToNewsFeed(_ context.Context, _ uint64, postID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, postID)
	return s.err
}

func (s *spyFanout) CachePostView(_ context.Context, postID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = append(s.cached, postID)
}

func (s *spyFanout) InvalidatePostView(_ context.Context, postID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, postID)
}

func (s *spyFanout) pushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

var fastRetry = service.RetryPolicy{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
	MaxElapsedTime:  100 * time.Millisecond,
}

var testPager = pkg.Pager{DefaultSize: 15, MaxSize: 50}

type testEnv struct {
	db    *gorm.DB
	mr    *miniredis.Miniredis
	rdb   *goredis.Client
	graph *fakeGraph

	persons  *mysql.PersonRepository
	posts    *mysql.PostRepository
	requests *mysql.FriendRequestRepository
	outbox   *mysql.OutboxRepository
	feeds    *redis.FeedCacheRepository
	sessions *redis.SessionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := mysqltest.Open(t)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &testEnv{
		db:       db,
		mr:       mr,
		rdb:      rdb,
		graph:    newFakeGraph(),
		persons:  &mysql.PersonRepository{DB: db},
		posts:    &mysql.PostRepository{DB: db},
		requests: &mysql.FriendRequestRepository{DB: db},
		outbox:   &mysql.OutboxRepository{DB: db},
		feeds:    redis.NewFeedCacheRepository(rdb, 150, time.Hour),
		sessions: redis.NewSessionRepository(rdb),
	}
}

func (e *testEnv) newsfeed(batchSize, parallelism int) *service.NewsfeedService {
	return service.NewNewsfeedService(e.graph, e.feeds, redis.NewDistLock(e.rdb), e.posts, batchSize, parallelism)
}

func (e *testEnv) friendRequests() *service.FriendRequestService {
	return service.NewFriendRequestService(e.requests, e.outbox, e.persons, e.graph, testPager, fastRetry)
}

// register 按指定 id 建账号并镜像 PERSON 节点
func (e *testEnv) register(t *testing.T, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		p := &model.Person{
			ID:        id,
			FirstName: "p" + uintStr(id),
			LastName:  "test",
			Email:     "p" + uintStr(id) + "@example.com",
			Password:  "x",
		}
		require.NoError(t, e.persons.Create(context.Background(), p))
		require.NoError(t, e.graph.MergePerson(context.Background(), id))
	}
}

func uintStr(id uint64) string {
	return strconv.FormatUint(id, 10)
}

package neo4j_test

import (
	"context"
	"os"
	"testing"
	"time"

	graph "Lee_Social/internal/repository/neo4j"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要真实 Neo4j：NEO4J_URI=bolt://localhost:7687 go test ./internal/repository/neo4j/
func setupGraph(t *testing.T) *graph.GraphRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping neo4j integration test in short mode")
	}
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, os.Getenv("NEO4J_PASSWORD"), ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, driver.VerifyConnectivity(ctx))

	repo := graph.NewGraphRepository(driver)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

// 用时间戳错开 id，避免和库里已有数据冲突
func testIDs(n int) []uint64 {
	base := uint64(time.Now().UnixNano() / 1000)
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = base + uint64(i)
	}
	return ids
}

func TestFriendshipEdges(t *testing.T) {
	repo := setupGraph(t)
	ctx := context.Background()
	ids := testIDs(3)
	a, b, c := ids[0], ids[1], ids[2]
	t.Cleanup(func() {
		for _, id := range ids {
			_ = repo.DetachDeletePerson(context.Background(), id)
		}
	})

	for _, id := range ids {
		require.NoError(t, repo.MergePerson(ctx, id))
	}
	// MERGE 两次，两个方向
	require.NoError(t, repo.MergeFriendship(ctx, a, b))
	require.NoError(t, repo.MergeFriendship(ctx, b, a))
	require.NoError(t, repo.MergeFriendship(ctx, a, c))

	friends, err := repo.FindAllFriendIDs(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b, c}, friends)

	page, err := repo.FindFriendIDs(ctx, a, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{c}, page)

	st, err := repo.RelationStatus(ctx, b, a)
	require.NoError(t, err)
	assert.True(t, st.Friends)
	assert.False(t, st.AnyBlock())

	require.NoError(t, repo.DeleteFriendship(ctx, b, a))
	ok, err := repo.AreFriends(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockEdgesAreDirected(t *testing.T) {
	repo := setupGraph(t)
	ctx := context.Background()
	ids := testIDs(2)
	a, b := ids[0], ids[1]
	t.Cleanup(func() {
		for _, id := range ids {
			_ = repo.DetachDeletePerson(context.Background(), id)
		}
	})

	for _, id := range ids {
		require.NoError(t, repo.MergePerson(ctx, id))
	}
	require.NoError(t, repo.MergeBlock(ctx, a, b))

	st, err := repo.RelationStatus(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, st.Blocks)
	assert.False(t, st.BlockedBy)

	st, err = repo.RelationStatus(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, st.Blocks)
	assert.True(t, st.BlockedBy)

	blocked, err := repo.FindBlockedIDs(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b}, blocked)

	require.NoError(t, repo.DeleteBlock(ctx, a, b))
	st, err = repo.RelationStatus(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, st.AnyBlock())
}

func TestRelationStatusUnknownPersons(t *testing.T) {
	repo := setupGraph(t)
	ids := testIDs(2)

	st, err := repo.RelationStatus(context.Background(), ids[0], ids[1])
	require.NoError(t, err)
	assert.Equal(t, graph.RelationStatus{}, st)
}

func TestEdgesNeedRegisteredPersons(t *testing.T) {
	repo := setupGraph(t)
	ctx := context.Background()
	ids := testIDs(2)
	a, ghost := ids[0], ids[1]
	t.Cleanup(func() {
		for _, id := range ids {
			_ = repo.DetachDeletePerson(context.Background(), id)
		}
	})
	require.NoError(t, repo.MergePerson(ctx, a))

	// 对端没有节点：不报错，也不凭空建节点
	require.NoError(t, repo.MergeFriendship(ctx, a, ghost))
	require.NoError(t, repo.MergeBlock(ctx, a, ghost))

	friends, err := repo.FindAllFriendIDs(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, friends)
	blocked, err := repo.FindBlockedIDs(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, blocked)

	// 注销后补投的边也不会把节点写回来
	require.NoError(t, repo.MergePerson(ctx, ghost))
	require.NoError(t, repo.DetachDeletePerson(ctx, ghost))
	require.NoError(t, repo.MergeFriendship(ctx, a, ghost))
	ok, err := repo.AreFriends(ctx, a, ghost)
	require.NoError(t, err)
	assert.False(t, ok)
}

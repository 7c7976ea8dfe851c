package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// RelationStatus 两个人之间的边，一次查询同时拿到好友和双向拉黑
type RelationStatus struct {
	Friends   bool
	Blocks    bool // a -[:BLOCKS]-> b
	BlockedBy bool // b -[:BLOCKS]-> a
}

// AnyBlock 任一方向存在 BLOCKS
func (s RelationStatus) AnyBlock() bool {
	return s.Blocks || s.BlockedBy
}

// GraphRepository Graph Store：PERSON 节点，FRIEND_WITH / BLOCKS 边
type GraphRepository struct {
	driver neo4j.DriverWithContext
}

func NewGraphRepository(driver neo4j.DriverWithContext) *GraphRepository {
	return &GraphRepository{driver: driver}
}

// EnsureSchema PERSON.id 唯一约束（同时建索引）
func (r *GraphRepository) EnsureSchema(ctx context.Context) error {
	return r.write(ctx, `CREATE CONSTRAINT person_id_unique IF NOT EXISTS FOR (p:PERSON) REQUIRE p.id IS UNIQUE`, nil)
}

// MergePerson 注册时镜像节点，幂等
func (r *GraphRepository) MergePerson(ctx context.Context, personID uint64) error {
	return r.write(ctx, `MERGE (p:PERSON {id: $id})`, map[string]any{"id": toInt(personID)})
}

// DetachDeletePerson 删除节点及其所有边
func (r *GraphRepository) DetachDeletePerson(ctx context.Context, personID uint64) error {
	return r.write(ctx, `MATCH (p:PERSON {id: $id}) DETACH DELETE p`, map[string]any{"id": toInt(personID)})
}

// MergeFriendship 无方向 MERGE，重复调用只会有一条 FRIEND_WITH。
// 节点只在注册时创建，任一方不存在（未注册或已注销）时什么也不写
func (r *GraphRepository) MergeFriendship(ctx context.Context, a, b uint64) error {
	query := `
		MATCH (a:PERSON {id: $a}), (b:PERSON {id: $b})
		MERGE (a)-[f:FRIEND_WITH]-(b)
		ON CREATE SET f.created_at = datetime()
	`
	return r.write(ctx, query, map[string]any{"a": toInt(a), "b": toInt(b)})
}

// DeleteFriendship 解除好友
func (r *GraphRepository) DeleteFriendship(ctx context.Context, a, b uint64) error {
	query := `
		MATCH (:PERSON {id: $a})-[f:FRIEND_WITH]-(:PERSON {id: $b})
		DELETE f
	`
	return r.write(ctx, query, map[string]any{"a": toInt(a), "b": toInt(b)})
}

// MergeBlock a 拉黑 b，有方向；同样不创建节点
func (r *GraphRepository) MergeBlock(ctx context.Context, a, b uint64) error {
	query := `
		MATCH (a:PERSON {id: $a}), (b:PERSON {id: $b})
		MERGE (a)-[r:BLOCKS]->(b)
		ON CREATE SET r.created_at = datetime()
	`
	return r.write(ctx, query, map[string]any{"a": toInt(a), "b": toInt(b)})
}

func (r *GraphRepository) DeleteBlock(ctx context.Context, a, b uint64) error {
	query := `
		MATCH (:PERSON {id: $a})-[r:BLOCKS]->(:PERSON {id: $b})
		DELETE r
	`
	return r.write(ctx, query, map[string]any{"a": toInt(a), "b": toInt(b)})
}

// RelationStatus 节点不存在时返回全 false
func (r *GraphRepository) RelationStatus(ctx context.Context, a, b uint64) (RelationStatus, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (a:PERSON {id: $a}), (b:PERSON {id: $b})
			RETURN EXISTS { (a)-[:FRIEND_WITH]-(b) } AS friends,
			       EXISTS { (a)-[:BLOCKS]->(b) } AS blocks,
			       EXISTS { (b)-[:BLOCKS]->(a) } AS blockedBy
		`
		res, err := tx.Run(ctx, query, map[string]any{"a": toInt(a), "b": toInt(b)})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return RelationStatus{}, res.Err()
		}
		rec := res.Record()
		return RelationStatus{
			Friends:   getBool(rec, "friends"),
			Blocks:    getBool(rec, "blocks"),
			BlockedBy: getBool(rec, "blockedBy"),
		}, nil
	})
	if err != nil {
		return RelationStatus{}, fmt.Errorf("failed to read relation status: %w", err)
	}
	return result.(RelationStatus), nil
}

// AreFriends 是否存在 FRIEND_WITH
func (r *GraphRepository) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	st, err := r.RelationStatus(ctx, a, b)
	if err != nil {
		return false, err
	}
	return st.Friends, nil
}

// FindAllFriendIDs 扇出用：返回全部好友 id
func (r *GraphRepository) FindAllFriendIDs(ctx context.Context, personID uint64) ([]uint64, error) {
	query := `
		MATCH (:PERSON {id: $id})-[:FRIEND_WITH]-(f:PERSON)
		RETURN DISTINCT f.id AS id ORDER BY id
	`
	return r.readIDs(ctx, query, map[string]any{"id": toInt(personID)})
}

// FindFriendIDs 分页好友 id，按 id 升序
func (r *GraphRepository) FindFriendIDs(ctx context.Context, personID uint64, offset, limit int) ([]uint64, error) {
	query := `
		MATCH (:PERSON {id: $id})-[:FRIEND_WITH]-(f:PERSON)
		WITH DISTINCT f.id AS id ORDER BY id
		SKIP $offset LIMIT $limit
		RETURN id
	`
	return r.readIDs(ctx, query, map[string]any{
		"id":     toInt(personID),
		"offset": int64(offset),
		"limit":  int64(limit),
	})
}

// FindBlockedIDs personID 拉黑的人
func (r *GraphRepository) FindBlockedIDs(ctx context.Context, personID uint64) ([]uint64, error) {
	query := `
		MATCH (:PERSON {id: $id})-[:BLOCKS]->(b:PERSON)
		RETURN b.id AS id ORDER BY id
	`
	return r.readIDs(ctx, query, map[string]any{"id": toInt(personID)})
}

func (r *GraphRepository) write(ctx context.Context, query string, params map[string]any) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph write failed: %w", err)
	}
	return nil
}

func (r *GraphRepository) readIDs(ctx context.Context, query string, params map[string]any) ([]uint64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, 0)
		for res.Next(ctx) {
			if id, ok := getID(res.Record(), "id"); ok {
				ids = append(ids, id)
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph read failed: %w", err)
	}
	return result.([]uint64), nil
}

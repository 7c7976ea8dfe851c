package neo4j

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j 只有 int64，账本里是 uint64
func toInt(id uint64) int64 {
	return int64(id)
}

func getBool(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getID(record *neo4j.Record, key string) (uint64, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0, false
	}
	switch v := val.(type) {
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}

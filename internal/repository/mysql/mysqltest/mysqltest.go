// Package mysqltest 为测试提供内存 SQLite 账本，表结构与 MySQL 相同
package mysqltest

import (
	"testing"

	"Lee_Social/internal/repository/mysql"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 每个测试一个独立的内存库。内存库随连接存活，所以只开一个连接，并发写会被串行化；
// 需要制造写冲突的测试通过 gorm 回调在两步之间插入数据
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, mysql.AutoMigrate(db))
	return db
}

// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/importer"
	"github.com/sykell/bookmarks/internal/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to t.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	conn, err := db.Open(sqlite.Open(dsn), logger.NewNop())
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(conn, logger.NewNop()))
	return conn
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t testing.TB, conn *gorm.DB, username string) db.User {
	t.Helper()

	user := db.User{Username: username, Password: "x"}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// CreateLink inserts a link whose key is derived from url.
func CreateLink(t testing.TB, conn *gorm.DB, userID uint, url, title string) db.Link {
	t.Helper()

	link := db.Link{UserID: userID, URL: url, URLKey: importer.URLKey(url), Title: title}
	require.NoError(t, conn.Create(&link).Error)
	return link
}

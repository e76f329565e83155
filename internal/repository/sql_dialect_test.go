package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestDBDialectName(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db should default to sqlite, got %s", got)
	}

	db, err := gorm.Open(sqlite.Open("file:dialect_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if got := dbDialectName(db); got != "sqlite" {
		t.Fatalf("sqlite dialect name want sqlite got %s", got)
	}
}

func TestLikeOperatorByDialect(t *testing.T) {
	cases := map[string]string{
		"postgres":   "ILIKE",
		"PostgreSQL": "ILIKE",
		" postgres ": "ILIKE",
		"sqlite":     "LIKE",
		"mysql":      "LIKE",
		"":           "LIKE",
	}
	for dialect, want := range cases {
		if got := likeOperatorByDialect(dialect); got != want {
			t.Fatalf("likeOperatorByDialect(%q) want %s got %s", dialect, want, got)
		}
	}
}

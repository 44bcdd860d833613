package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"video-library/config"
	"video-library/constant"
	"video-library/repository"
)

// MustOpenRepository opens a migrated sqlite-backed repository in a per-test directory.
func MustOpenRepository(t testing.TB) repository.VideoRepository {
	t.Helper()

	cfg := &config.Config{
		App: config.App{Environment: constant.EnvironmentProduction.String()},
		Database: config.Database{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "videos.db"),
		},
	}
	db, err := cfg.OpenDatabase()
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repo := repository.NewRepo(db)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return repo
}

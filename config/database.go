package config

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase opens the metadata store connection for the configured driver.
func (c *Config) OpenDatabase() (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	if !c.IsProduction() {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch c.Database.Driver {
	case "postgres":
		db, err := sql.Open("postgres", c.Database.DSN)
		if err != nil {
			return nil, err
		}
		return gorm.Open(postgres.New(postgres.Config{Conn: db}), gormCfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(c.Database.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
}

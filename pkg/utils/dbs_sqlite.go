package utils

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDatabase opens a gorm connection for driver (sqlite, mysql, pg/postgres).
// SQL warnings go to logWriter; nil silences them.
func InitDatabase(logWriter io.Writer, driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if logWriter != nil {
		cfg.Logger = gormlogger.New(
			log.New(logWriter, "\r\n", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		)
	}

	db, err := createDatabaseInstance(cfg, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return db, nil
}

func createDatabaseInstance(cfg *gorm.Config, driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		db, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// Older servers reject the collation clause.
		if _, err = sqlDB.Exec("SET NAMES utf8mb4 COLLATE utf8mb4_unicode_ci"); err != nil {
			_, _ = sqlDB.Exec("SET NAMES utf8mb4")
		}
		return db, nil
	case "pg", "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "", "sqlite":
		if dsn == "" {
			dsn = "file::memory:"
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

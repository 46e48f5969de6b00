package bootstrap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/code-100-precent/LingTalk/internal/models"
	"github.com/code-100-precent/LingTalk/pkg/config"
	"github.com/code-100-precent/LingTalk/pkg/logger"
	"github.com/code-100-precent/LingTalk/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	InitSQLPath string // optional SQL script executed before migrations
	AutoMigrate bool
	SeedNonProd bool // seed defaults when APP_ENV is not production
}

// SetupDatabase opens the configured database, runs the optional init script,
// migrates and seeds it.
func SetupDatabase(logWriter io.Writer, opts *Options) (*gorm.DB, error) {
	if opts == nil {
		opts = &Options{AutoMigrate: true}
	}

	db, err := initDBConn(logWriter)
	if err != nil {
		logger.Error("init database failed", zap.Error(err))
		return nil, err
	}

	if opts.InitSQLPath != "" {
		if err := RunInitSQL(db, opts.InitSQLPath); err != nil {
			logger.Error("run init sql failed", zap.String("path", opts.InitSQLPath), zap.Error(err))
			return nil, err
		}
	}

	if opts.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			logger.Error("migrate database failed", zap.Error(err))
			return nil, err
		}
	}

	if opts.SeedNonProd && !isProduction() {
		if err := (&SeedService{db: db}).SeedAll(); err != nil {
			logger.Error("seed database failed", zap.Error(err))
			return nil, err
		}
	}
	return db, nil
}

func initDBConn(logWriter io.Writer) (*gorm.DB, error) {
	dbCfg := config.GlobalConfig.Database
	return utils.InitDatabase(logWriter, dbCfg.Driver, dbCfg.DSN)
}

func isProduction() bool {
	env := strings.ToLower(utils.GetEnv("APP_ENV"))
	return env == "production" || env == "prod"
}

// RunMigrations migrates every model owned by the service.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	return models.Migrate(db)
}

// RunInitSQL executes a ';'-terminated SQL script. Lines starting with
// "--" or "#" are comments.
func RunInitSQL(db *gorm.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open init sql: %w", err)
	}
	defer f.Close()

	var stmt strings.Builder
	exec := func() error {
		sql := strings.TrimSpace(stmt.String())
		stmt.Reset()
		if sql == "" {
			return nil
		}
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("exec %q: %w", sql, err)
		}
		return nil
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		stmt.WriteString(line)
		stmt.WriteString("\n")
		if strings.HasSuffix(line, ";") {
			if err := exec(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// trailing statement without ';'
	return exec()
}

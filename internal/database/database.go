package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the process-wide connection, set by Initialize.
var DB *gorm.DB

const sqlitePrefix = "sqlite://"

// Open connects to dsn. "sqlite://path" and ":memory:" select SQLite, anything else
// is handed to the Postgres driver.
func Open(dsn string, verbose bool) (*gorm.DB, error) {
	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}
	gormCfg := &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var (
		db       *gorm.DB
		err      error
		inMemory bool
	)
	switch {
	case dsn == ":memory:" || strings.HasPrefix(dsn, sqlitePrefix):
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		inMemory = path == ":memory:"
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if inMemory {
		// every new connection would see its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

// Initialize opens dsn and stores the connection in DB.
func Initialize(dsn string, verbose bool) error {
	if dsn == "" {
		dsn = sqlitePrefix + "showcase.db"
	}
	db, err := Open(dsn, verbose)
	if err != nil {
		return err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", db.Dialector.Name()))
	return nil
}

// Migrate creates or updates every table and the secondary indexes.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_projects_author_public_created ON projects (author_id, is_public, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_discussions_group_activity ON discussions (group_id, last_activity DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_project_created ON comments (project_id, created_at)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close releases the pool behind DB.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database.
func Health(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn in a transaction bound to ctx.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

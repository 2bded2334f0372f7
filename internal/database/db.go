package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Connect establishes a connection to the database named by dsn.
// postgres:// and postgresql:// open PostgreSQL, mysql:// opens MySQL, and
// sqlite://, file: or a path ending in .db open SQLite.
func Connect(dsn string, logLevel logger.LogLevel) error {
	var err error

	DB, err = Open(dsn, logLevel)
	if err != nil {
		return err
	}

	logrus.Info("Database connection established")
	return nil
}

// Open returns a new connection without touching the global instance.
func Open(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// one writer; also keeps :memory: databases on a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "mysql://"):
		// go-sql-driver expects user:pass@tcp(host:port)/db; parseTime is required for DATE columns
		mysqlDSN := strings.TrimPrefix(dsn, "mysql://")
		if !strings.Contains(mysqlDSN, "parseTime=") {
			sep := "?"
			if strings.Contains(mysqlDSN, "?") {
				sep = "&"
			}
			mysqlDSN += sep + "parseTime=true"
		}
		return mysql.Open(mysqlDSN), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:", strings.HasSuffix(dsn, ".db"):
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database URL %q", redactDSN(dsn))
	}
}

// redactDSN hides credentials before a DSN reaches an error message.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Account{},
		&Contact{},
		&Location{},
		&Machine{},
		&AlertRule{},
		&Alert{},
	}
}

// AutoMigrate runs database migrations
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs database migrations against db.
func Migrate(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

// InitializeDefaults creates default records if they don't exist
func InitializeDefaults(rulesFile string) error {
	rules, err := LoadDefaultAlertRules(rulesFile)
	if err != nil {
		return err
	}
	_, err = SeedAlertRules(DB, rules)
	return err
}

// SeedAlertRules inserts rules when the alert_rules table is empty and returns
// how many were created.
func SeedAlertRules(db *gorm.DB, rules []AlertRule) (int, error) {
	var count int64
	if err := db.Model(&AlertRule{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count alert rules: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	created := 0
	for i := range rules {
		if err := db.Create(&rules[i]).Error; err != nil {
			return created, fmt.Errorf("failed to create alert rule %q: %w", rules[i].Name, err)
		}
		created++
	}
	logrus.WithField("count", created).Info("Created default alert rules")
	return created, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// Close closes the database connection
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

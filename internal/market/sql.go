package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

const (
	dbConnectTimeout = "5s"
	slowQuery        = 500 * time.Millisecond
)

// sqlRecord is the table layout of price rows
type sqlRecord struct {
	ID     uint `gorm:"primaryKey"`
	Record `gorm:"embedded"`
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger().Module("sql"), slowQuery),
	}
}

// OpenSQLite opens a SQLite price database
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// MySQLDSN builds a DSN with escaped credentials and connect timeouts
func MySQLDSN(s *conf.MySQLSettings) string {
	cfg := mysql.Config{
		User:                 s.Username,
		Passwd:               s.Password,
		Net:                  "tcp",
		Addr:                 s.Host + ":" + strconv.Itoa(s.Port),
		DBName:               s.Database,
		AllowNativePasswords: true,
		Params: map[string]string{
			"charset":     "utf8mb4",
			"timeout":     dbConnectTimeout,
			"readTimeout": dbConnectTimeout,
		},
	}
	return cfg.FormatDSN()
}

// OpenMySQL opens a MySQL price database
func OpenMySQL(s *conf.MySQLSettings) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(MySQLDSN(s)), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open mysql %s:%d/%s: %w", s.Host, s.Port, s.Database, err)
	}
	return db, nil
}

// LoadSQL reads every row of table
func LoadSQL(ctx context.Context, db *gorm.DB, table string) ([]Record, error) {
	var rows []sqlRecord
	if err := db.WithContext(ctx).Table(table).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if err := row.Record.validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", table, row.ID, err)
		}
		records = append(records, row.Record)
	}
	return records, nil
}

// ImportSQL creates table if needed and appends records to it
func ImportSQL(ctx context.Context, db *gorm.DB, table string, records []Record) error {
	tx := db.WithContext(ctx)
	if err := tx.Table(table).AutoMigrate(&sqlRecord{}); err != nil {
		return fmt.Errorf("migrate %s: %w", table, err)
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]sqlRecord, len(records))
	for i, r := range records {
		rows[i] = sqlRecord{Record: r}
	}
	if err := tx.Table(table).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

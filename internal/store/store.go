// Package store persists execution attempts via GORM/MySQL, adapted from the teacher's
// internal/db/transaction_recorder.go MySQLRecorder — the same bigint-as-varchar model
// and query surface, repurposed from asset snapshots to execution-attempt rows.
package store

import (
	"fmt"
	"math/big"
	"time"

	basearb "basearb"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ExecutionAttemptRecord is the database model for a basearb.ExecutionAttempt.
type ExecutionAttemptRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time `gorm:"index;not null"`
	TokenSymbol    string    `gorm:"type:varchar(32);not null"`
	BorrowAmount   string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	DirectionLabel string    `gorm:"type:varchar(64);not null"`
	ExpectedProfit string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	TxHash         string    `gorm:"type:varchar(80);index"`
	Status         string    `gorm:"type:varchar(32);not null;index"`
	GasUsed        uint64    `gorm:"not null"`
	ActualProfit   string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	Notes          string    `gorm:"type:varchar(512)"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (ExecutionAttemptRecord) TableName() string {
	return "execution_attempts"
}

// MySQLRecorder persists ExecutionAttempt rows via GORM and MySQL.
type MySQLRecorder struct {
	db *gorm.DB
}

// NewMySQLRecorder connects to dsn and migrates the execution_attempts schema.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect to mysql: %w", err)
	}

	if err := db.AutoMigrate(&ExecutionAttemptRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}

	return &MySQLRecorder{db: db}, nil
}

// NewMySQLRecorderWithDB wraps an existing GORM DB instance, migrating the schema.
func NewMySQLRecorderWithDB(db *gorm.DB) (*MySQLRecorder, error) {
	if err := db.AutoMigrate(&ExecutionAttemptRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &MySQLRecorder{db: db}, nil
}

// RecordAttempt persists one execution attempt.
func (r *MySQLRecorder) RecordAttempt(attempt basearb.ExecutionAttempt) error {
	record := ExecutionAttemptRecord{
		Timestamp:      attempt.Timestamp,
		TokenSymbol:    attempt.TokenSymbol,
		BorrowAmount:   bigIntToString(attempt.BorrowAmount),
		DirectionLabel: attempt.DirectionLabel,
		ExpectedProfit: bigIntToString(attempt.ExpectedProfit),
		TxHash:         attempt.TxHash,
		Status:         string(attempt.Status),
		GasUsed:        attempt.GasUsed,
		ActualProfit:   bigIntToString(attempt.ActualProfit),
		Notes:          attempt.Notes,
	}

	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("store: record attempt: %w", result.Error)
	}
	return nil
}

// GetDB returns the underlying GORM DB instance for advanced queries.
func (r *MySQLRecorder) GetDB() *gorm.DB {
	return r.db
}

// Close closes the database connection.
func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("store: underlying db: %w", err)
	}
	return sqlDB.Close()
}

// bigIntToString safely converts *big.Int to string, handling nil values.
func bigIntToString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

// GetLatestAttempt retrieves the most recently recorded attempt.
func (r *MySQLRecorder) GetLatestAttempt() (*ExecutionAttemptRecord, error) {
	var record ExecutionAttemptRecord
	if result := r.db.Order("timestamp DESC").First(&record); result.Error != nil {
		return nil, fmt.Errorf("store: get latest attempt: %w", result.Error)
	}
	return &record, nil
}

// GetAttemptsByTimeRange retrieves attempts within [start, end].
func (r *MySQLRecorder) GetAttemptsByTimeRange(start, end time.Time) ([]ExecutionAttemptRecord, error) {
	var records []ExecutionAttemptRecord
	result := r.db.Where("timestamp BETWEEN ? AND ?", start, end).
		Order("timestamp ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("store: get attempts by time range: %w", result.Error)
	}
	return records, nil
}

// GetAttemptsByStatus retrieves every attempt with the given terminal status.
func (r *MySQLRecorder) GetAttemptsByStatus(status basearb.AttemptStatus) ([]ExecutionAttemptRecord, error) {
	var records []ExecutionAttemptRecord
	result := r.db.Where("status = ?", string(status)).
		Order("timestamp ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("store: get attempts by status: %w", result.Error)
	}
	return records, nil
}

// CountAttempts returns the total number of recorded attempts.
func (r *MySQLRecorder) CountAttempts() (int64, error) {
	var count int64
	if result := r.db.Model(&ExecutionAttemptRecord{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("store: count attempts: %w", result.Error)
	}
	return count, nil
}

// CountAttemptsSince returns how many attempts were recorded at or after since, used by
// the engine's per-hour transaction-rate limiter (MAX_TX_PER_HOUR).
func (r *MySQLRecorder) CountAttemptsSince(since time.Time) (int64, error) {
	var count int64
	result := r.db.Model(&ExecutionAttemptRecord{}).Where("timestamp >= ?", since).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("store: count attempts since: %w", result.Error)
	}
	return count, nil
}

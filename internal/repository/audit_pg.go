package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoVaultGate/vaultgate/internal/model"
)

type PostgresAuditRepo struct {
	db *gorm.DB
}

type auditDB struct {
	ID            string    `gorm:"column:id;primaryKey"`
	AccountID     string    `gorm:"column:account_id;index"`
	Method        string    `gorm:"column:method"`
	Path          string    `gorm:"column:path"`
	IP            string    `gorm:"column:ip"`
	UserAgent     string    `gorm:"column:user_agent"`
	RequestBody   string    `gorm:"column:request_body"`
	RequestHeader string    `gorm:"column:request_header"`
	StatusCode    int       `gorm:"column:status_code"`
	ResponseBody  string    `gorm:"column:response_body"`
	LatencyMs     int64     `gorm:"column:latency_ms"`
	ContextJSON   []byte    `gorm:"column:context;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at;index"`
}

func (auditDB) TableName() string { return "audit_logs" }

func NewPostgresAuditRepo(db *gorm.DB) *PostgresAuditRepo {
	repo := &PostgresAuditRepo{db: db}
	_ = db.AutoMigrate(&auditDB{})
	return repo
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	contextJSON, _ := json.Marshal(entry.Context)
	row := auditDB{
		ID:            entry.ID,
		AccountID:     entry.AccountID,
		Method:        entry.Method,
		Path:          entry.Path,
		IP:            entry.IP,
		UserAgent:     entry.UserAgent,
		RequestBody:   entry.RequestBody,
		RequestHeader: entry.RequestHeader,
		StatusCode:    entry.StatusCode,
		ResponseBody:  entry.ResponseBody,
		LatencyMs:     entry.LatencyMs,
		ContextJSON:   contextJSON,
		CreatedAt:     entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, accountID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Model(&auditDB{})
	if accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	var rows []auditDB
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]*model.AuditLog, 0, len(rows))
	for i := range rows {
		row := rows[i]
		entry := &model.AuditLog{
			ID:            row.ID,
			AccountID:     row.AccountID,
			Method:        row.Method,
			Path:          row.Path,
			IP:            row.IP,
			UserAgent:     row.UserAgent,
			RequestBody:   row.RequestBody,
			RequestHeader: row.RequestHeader,
			StatusCode:    row.StatusCode,
			ResponseBody:  row.ResponseBody,
			LatencyMs:     row.LatencyMs,
			CreatedAt:     row.CreatedAt,
		}
		if len(row.ContextJSON) > 0 {
			_ = json.Unmarshal(row.ContextJSON, &entry.Context)
		}
		results = append(results, entry)
	}
	return results, nil
}

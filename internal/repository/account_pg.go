package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GoVaultGate/vaultgate/internal/model"
)

type PostgresAccountRepo struct {
	db *gorm.DB
}

// DB model; the rate limit config rides as JSONB.
type accountDB struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	APIKey    string    `gorm:"column:api_key;uniqueIndex"`
	Address   string    `gorm:"column:address;index"`
	RateJSON  []byte    `gorm:"column:rate_limit_config;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (accountDB) TableName() string { return "accounts" }

func NewPostgresAccountRepo(db *gorm.DB) *PostgresAccountRepo {
	repo := &PostgresAccountRepo{db: db}
	_ = db.AutoMigrate(&accountDB{})
	return repo
}

func (r *PostgresAccountRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	var row accountDB
	err := r.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return r.toDomain(&row)
}

func (r *PostgresAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var row accountDB
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return r.toDomain(&row)
}

func (r *PostgresAccountRepo) List(ctx context.Context, limit, offset int) ([]*model.Account, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var rows []accountDB
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	results := make([]*model.Account, 0, len(rows))
	for i := range rows {
		account, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		results = append(results, account)
	}
	return results, nil
}

func (r *PostgresAccountRepo) Create(ctx context.Context, account *model.Account) error {
	rate, _ := json.Marshal(account.Rate)
	row := accountDB{
		ID:        strings.TrimSpace(account.ID),
		Name:      account.Name,
		APIKey:    strings.TrimSpace(account.APIKey),
		Address:   strings.ToLower(account.Address),
		RateJSON:  rate,
		CreatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&accountDB{}).Error
}

func (r *PostgresAccountRepo) toDomain(row *accountDB) (*model.Account, error) {
	account := &model.Account{
		ID:      row.ID,
		Name:    row.Name,
		APIKey:  row.APIKey,
		Address: row.Address,
	}
	if len(row.RateJSON) > 0 {
		if err := json.Unmarshal(row.RateJSON, &account.Rate); err != nil {
			return nil, err
		}
	}
	return account, nil
}

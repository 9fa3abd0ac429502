package gormrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"planetbot/internal/app/ports"
)

type AccountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepo {
	return AccountRepo{db: db}
}

func (r AccountRepo) Create(ctx context.Context, account ports.AccountRecord) error {
	row := accountRow{
		Username:     account.Username,
		UserID:       account.UserID,
		HashPassword: account.HashPassword,
		PasswordSalt: account.PasswordSalt,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := getDBFromCtx(ctx, r.db).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

func (r AccountRepo) GetByUsername(ctx context.Context, username string) (ports.AccountRecord, error) {
	var row accountRow
	if err := getDBFromCtx(ctx, r.db).Where("username = ?", username).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.AccountRecord{}, ports.ErrNotFound
		}
		return ports.AccountRecord{}, err
	}
	return ports.AccountRecord{
		Username:     row.Username,
		UserID:       row.UserID,
		HashPassword: row.HashPassword,
		PasswordSalt: row.PasswordSalt,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

package model

import "time"

// RefreshTokenModel mirrors the 'refresh_tokens' table. Rows are only ever updated, never deleted
// except through the account cascade.
type RefreshTokenModel struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	AccountID       uint64    `gorm:"not null;index"`
	TokenHash       string    `gorm:"type:char(64);uniqueIndex;not null"`
	Expires         time.Time `gorm:"not null"`
	Created         time.Time `gorm:"not null"`
	CreatedByIP     string    `gorm:"column:created_by_ip;type:varchar(64)"`
	IsActive        bool      `gorm:"not null"`
	Revoked         *time.Time
	RevokedByIP     *string `gorm:"column:revoked_by_ip;type:varchar(64)"`
	ReplacedByToken *string `gorm:"type:char(64)"`
}

// TableName explicitly sets the table name for GORM.
func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

package model

import "time"

// AccountModel mirrors the 'accounts' table.
type AccountModel struct {
	ID                uint64  `gorm:"primaryKey;autoIncrement"`
	Title             string  `gorm:"type:varchar(32);not null"`
	FirstName         string  `gorm:"type:varchar(100);not null"`
	LastName          string  `gorm:"type:varchar(100);not null"`
	Email             string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash      string  `gorm:"type:varchar(255);not null"`
	Role              string  `gorm:"type:varchar(16);not null"`
	IsVerified        bool    `gorm:"not null"`
	IsActive          bool    `gorm:"not null"`
	VerificationToken *string `gorm:"type:char(64);uniqueIndex"`
	ResetToken        *string `gorm:"type:char(64);uniqueIndex"`
	ResetTokenExpires *time.Time
	Created           time.Time `gorm:"not null"`
	Updated           *time.Time
	Verified          *time.Time
	PasswordReset     *time.Time

	RefreshTokens []RefreshTokenModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

package models

import "time"

// RefreshToken guarda o hash de um refresh token emitido. Tokens da mesma
// cadeia de rotação compartilham FamilyID.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:36;index;not null"`
	Role      Role      `gorm:"size:20;not null"`
	FamilyID  string    `gorm:"size:36;index;not null"`
	Hash      string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt *time.Time
	CreatedAt time.Time
}

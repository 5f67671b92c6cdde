package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carrega a chave UUID e os timestamps comuns a todos os registros.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate gera o ID quando o chamador não informou um.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

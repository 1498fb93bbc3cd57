package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is an invoice recipient. Documento is the fiscal id (RIF/cédula).
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Documento string    `gorm:"uniqueIndex;not null"`
	Nombre    string    `gorm:"index;not null"`
	Email     *string
	Telefono  *string
	Direccion *string
	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

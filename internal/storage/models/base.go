// internal/storage/models/base.go
package models

import "time"

// BaseModel - общие поля записей журнала
type BaseModel struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

package domain

import "time"

// Product описывает товар каталога.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64 // Цена хранится в копейках
	Category    string
	Features    map[string]any
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// AttributeRecord собирает атрибуты товара для embedding-провайдера.
func (p *Product) AttributeRecord() AttributeRecord {
	return AttributeRecord{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"features":    p.Features,
	}
}

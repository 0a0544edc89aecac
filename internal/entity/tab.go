package entity

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Tab is one imported spreadsheet: a stable id, a truncated display label and
// the deduplicated stocks in first-seen order. Tabs are created whole by
// ingestion and never mutated afterwards, only removed.
type Tab struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Stocks []StockRecord `json:"stocks"`
}

// Upload is the persisted row backing a Tab in the uploads table. The stock
// list is stored as a JSON document keyed by the tab id.
type Upload struct {
	ID        string         `gorm:"primaryKey"`
	Name      string         `gorm:"not null"`
	Stocks    datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

// TableName maps Upload onto the uploads collection.
func (Upload) TableName() string { return "uploads" }

// NewUpload converts a Tab into its persisted row.
func NewUpload(t *Tab) (*Upload, error) {
	stocks, err := json.Marshal(t.Stocks)
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID:     t.ID,
		Name:   t.Name,
		Stocks: datatypes.JSON(stocks),
	}, nil
}

// ToTab converts a persisted row back into a Tab.
func (u *Upload) ToTab() (*Tab, error) {
	var stocks []StockRecord
	if len(u.Stocks) > 0 {
		if err := json.Unmarshal(u.Stocks, &stocks); err != nil {
			return nil, err
		}
	}
	return &Tab{ID: u.ID, Name: u.Name, Stocks: stocks}, nil
}

package entity

import "time"

// Favorite is one favorited stock code. No metadata is stored with it; a
// favorite may outlive every tab that carried its code, in which case it
// renders as a code-only stub.
type Favorite struct {
	Code      string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName maps Favorite onto the favorites collection.
func (Favorite) TableName() string { return "favorites" }

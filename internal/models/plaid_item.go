package models

// PlaidItem is one linked bank connection. It is created once per successful
// public-token exchange and never updated.
type PlaidItem struct {
	Base
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	// ItemID is the aggregator's identifier for the connection.
	ItemID string `gorm:"uniqueIndex;not null" json:"item_id"`
	// AccessToken holds the (sealed) aggregator credential. It is write-only
	// from the API's point of view and must never be serialized.
	AccessToken string    `gorm:"not null" json:"-"`
	Accounts    []Account `gorm:"foreignKey:PlaidItemID" json:"-"`
}

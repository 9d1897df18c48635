package models

import (
	"github.com/lib/pq"
)

// OnboardingStatus tracks whether a user finished the first-run flow.
type OnboardingStatus string

const (
	OnboardingIncomplete OnboardingStatus = "incomplete"
	OnboardingComplete   OnboardingStatus = "complete"
)

// Defaults applied to users created on first verified contact.
const (
	DefaultTimezone  = "UTC"
	DefaultCurrency  = "USD"
	DefaultOpenHour  = 9
	DefaultCloseHour = 17
)

// User is the local identity for one identity-provider subject.
type User struct {
	Base
	Auth0ID          string           `gorm:"column:auth0_id;uniqueIndex;not null" json:"auth0_id"`
	Email            string           `gorm:"uniqueIndex;not null" json:"email"`
	Name             *string          `json:"name"`
	Timezone         string           `gorm:"not null;default:'UTC'" json:"timezone"`
	DefaultCurrency  string           `gorm:"size:3;not null;default:'USD'" json:"default_currency"`
	OnboardingStatus OnboardingStatus `gorm:"not null;default:'incomplete'" json:"onboarding_status"`
	Preferences      *UserPreferences `gorm:"foreignKey:UserID" json:"preferences,omitempty"`
	PlaidItems       []PlaidItem      `gorm:"foreignKey:UserID" json:"-"`
	Accounts         []Account        `gorm:"foreignKey:UserID" json:"-"`
	Transactions     []Transaction    `gorm:"foreignKey:UserID" json:"-"`
}

// UserPreferences is owned exclusively by one User.
type UserPreferences struct {
	Base
	UserID       string   `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	WeeklyReport bool     `gorm:"not null;default:false" json:"weekly_report"`
	TaxRate      *float64 `json:"tax_rate"`
	// BusinessHours is an ordered [open, close] pair of hours of day.
	BusinessHours pq.Int64Array `gorm:"type:integer[]" json:"business_hours"`
}

// TableName keeps the table name singular-owner style used by the migrations.
func (UserPreferences) TableName() string {
	return "user_preferences"
}

// NewDefaultPreferences returns the preferences attached to a newly created user.
func NewDefaultPreferences() *UserPreferences {
	return &UserPreferences{
		WeeklyReport:  false,
		BusinessHours: pq.Int64Array{DefaultOpenHour, DefaultCloseHour},
	}
}

// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for slim images without /usr/share/zoneinfo

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"

	"freedash/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("timezone", validateTimezone)
		_ = v.RegisterValidation("onboarding_status", validateOnboardingStatus)
		_ = v.RegisterValidation("business_hours", validateBusinessHours)
	}
}

// IsCurrency reports whether code is an upper-case ISO 4217 code known to x/text.
func IsCurrency(code string) bool {
	if len(code) != 3 || strings.ToUpper(code) != code {
		return false
	}
	_, err := currency.ParseISO(code)
	return err == nil
}

// IsTimezone reports whether name is an IANA zone name. "Local" is rejected.
func IsTimezone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// IsBusinessHours reports whether hours is an [open, close] pair of hours of
// day with open before close.
func IsBusinessHours(hours []int64) bool {
	if len(hours) != 2 {
		return false
	}
	open, closing := hours[0], hours[1]
	return open >= 0 && closing <= 24 && open < closing
}

func validateISO4217(fl validator.FieldLevel) bool {
	return IsCurrency(fl.Field().String())
}

func validateTimezone(fl validator.FieldLevel) bool {
	return IsTimezone(fl.Field().String())
}

func validateOnboardingStatus(fl validator.FieldLevel) bool {
	switch models.OnboardingStatus(fl.Field().String()) {
	case models.OnboardingIncomplete, models.OnboardingComplete:
		return true
	}
	return false
}

func validateBusinessHours(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	hours := make([]int64, field.Len())
	for i := 0; i < field.Len(); i++ {
		elem := field.Index(i)
		switch elem.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			hours[i] = elem.Int()
		default:
			return false
		}
	}
	return IsBusinessHours(hours)
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"freedash/internal/auth"
	apperrors "freedash/internal/errors"
	"freedash/internal/logger"
	"freedash/internal/models"
	"freedash/internal/pagination"
	appvalidator "freedash/internal/validator"
)

var validate = validator.New()

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// ResolveUser returns the user for a verified identity, creating it together
// with default preferences on first contact. The bool reports creation.
func (s *userService) ResolveUser(ctx context.Context, id *auth.Identity, profile SyncProfile) (*models.User, bool, error) {
	if id == nil || strings.TrimSpace(id.Subject) == "" {
		return nil, false, apperrors.ErrUnauthorized
	}
	db := s.db.WithContext(ctx)

	user, err := findUserBySubject(db, id.Subject)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, err
	}

	user, err = newUserFor(id, profile)
	if err != nil {
		return nil, false, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		prefs := user.Preferences
		user.Preferences = nil
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		prefs.UserID = user.ID
		if err := tx.Create(prefs).Error; err != nil {
			return err
		}
		user.Preferences = prefs
		return nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Lost a race: either the same subject was created concurrently or
		// the email already belongs to another subject.
		existing, findErr := findUserBySubject(db, id.Subject)
		if findErr == nil {
			return existing, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.ErrAccountExists, err)
	}

	logger.Get().Infow("created user on first contact", "user_id", user.ID, "subject", id.Subject)
	return user, true, nil
}

func newUserFor(id *auth.Identity, profile SyncProfile) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(id.Email))
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a valid email is required")
	}

	timezone := firstNonEmpty(profile.Timezone, models.DefaultTimezone)
	if !appvalidator.IsTimezone(timezone) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid timezone")
	}
	currency := firstNonEmpty(strings.ToUpper(profile.DefaultCurrency), models.DefaultCurrency)
	if !appvalidator.IsCurrency(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid default currency")
	}

	user := &models.User{
		Auth0ID:          id.Subject,
		Email:            email,
		Timezone:         timezone,
		DefaultCurrency:  currency,
		OnboardingStatus: models.OnboardingIncomplete,
		Preferences:      models.NewDefaultPreferences(),
	}
	if name := strings.TrimSpace(firstNonEmpty(profile.Name, id.Name)); name != "" {
		user.Name = &name
	}
	return user, nil
}

// GetUserBySubject retrieves a user by identity-provider subject
func (s *userService) GetUserBySubject(ctx context.Context, subject string) (*models.User, error) {
	return findUserBySubject(s.db.WithContext(ctx), subject)
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return findUserByID(s.db.WithContext(ctx), id)
}

// UpdateUser applies a partial profile update.
func (s *userService) UpdateUser(ctx context.Context, id string, update UserUpdate) (*models.User, error) {
	if err := validateUserUpdate(update); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findUserByID(tx, id)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				changes["name"] = nil
			} else {
				changes["name"] = name
			}
		}
		if update.Timezone != nil {
			changes["timezone"] = *update.Timezone
		}
		if update.DefaultCurrency != nil {
			changes["default_currency"] = *update.DefaultCurrency
		}
		if update.OnboardingStatus != nil {
			changes["onboarding_status"] = *update.OnboardingStatus
		}
		if len(changes) > 0 {
			if err := tx.Model(current).Updates(changes).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if p := update.Preferences; p != nil {
			prefs := current.Preferences
			if prefs == nil {
				prefs = models.NewDefaultPreferences()
				prefs.UserID = current.ID
			}
			if p.WeeklyReport != nil {
				prefs.WeeklyReport = *p.WeeklyReport
			}
			if p.ClearTaxRate {
				prefs.TaxRate = nil
			} else if p.TaxRate != nil {
				prefs.TaxRate = p.TaxRate
			}
			if p.BusinessHours != nil {
				prefs.BusinessHours = pq.Int64Array(p.BusinessHours)
			}
			if err := tx.Save(prefs).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		user, err = findUserByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validateUserUpdate(update UserUpdate) error {
	if update.Timezone != nil && !appvalidator.IsTimezone(*update.Timezone) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid timezone")
	}
	if update.DefaultCurrency != nil && !appvalidator.IsCurrency(*update.DefaultCurrency) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid default currency")
	}
	if s := update.OnboardingStatus; s != nil && *s != models.OnboardingIncomplete && *s != models.OnboardingComplete {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid onboarding status")
	}
	if p := update.Preferences; p != nil {
		if p.BusinessHours != nil && !appvalidator.IsBusinessHours(p.BusinessHours) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "business hours must be an [open, close] pair within 0-24")
		}
		if p.TaxRate != nil && (*p.TaxRate < 0 || *p.TaxRate > 100) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "tax rate must be between 0 and 100")
		}
	}
	return nil
}

// DeleteUser removes the user and everything the user owns.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUserByID(tx, id); err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.Transaction{},
			&models.Account{},
			&models.PlaidItem{},
			&models.UserPreferences{},
		} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ListUsers returns one page of users, oldest first.
func (s *userService) ListUsers(ctx context.Context, page pagination.PageRequest) (*pagination.Page[models.User], error) {
	page.Normalize()
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := db.Preload("Preferences").Order("created_at ASC, id ASC").Scopes(page.Scope()).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPage(users, page, total)
	return &result, nil
}

func findUserBySubject(db *gorm.DB, subject string) (*models.User, error) {
	var user models.User
	if err := db.Preload("Preferences").Where("auth0_id = ?", subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func findUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Preload("Preferences").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

package services

import (
	"context"
	"testing"

	"freedash/internal/auth"
	"freedash/internal/logger"
	"freedash/internal/models"
	"freedash/internal/pagination"
	"freedash/internal/testutil"
)

func init() {
	logger.Init("test")
}

func identity(subject, email string) *auth.Identity {
	return &auth.Identity{Subject: subject, Email: email}
}

func TestResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("first_contact_creates_user_and_preferences", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, isNew, err := svc.ResolveUser(ctx, identity("auth0|alice", "Alice@Example.com"), SyncProfile{})
		testutil.AssertNoError(t, err)

		if !isNew {
			t.Error("expected isNew=true on first contact")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.Timezone != "UTC" || user.DefaultCurrency != "USD" {
			t.Errorf("expected UTC/USD defaults, got %s/%s", user.Timezone, user.DefaultCurrency)
		}
		if user.OnboardingStatus != models.OnboardingIncomplete {
			t.Errorf("expected incomplete onboarding, got %s", user.OnboardingStatus)
		}
		if user.Preferences == nil {
			t.Fatal("expected preferences to be attached")
		}
		if user.Preferences.WeeklyReport {
			t.Error("expected weekly report off by default")
		}
		if len(user.Preferences.BusinessHours) != 2 || user.Preferences.BusinessHours[0] != 9 || user.Preferences.BusinessHours[1] != 17 {
			t.Errorf("expected business hours [9 17], got %v", user.Preferences.BusinessHours)
		}

		testutil.AssertCount(t, db, &models.User{}, 1)
		testutil.AssertCount(t, db, &models.UserPreferences{}, 1, "user_id = ?", user.ID)
	})

	t.Run("repeated_contact_returns_same_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		first, _, err := svc.ResolveUser(ctx, identity("auth0|bob", "bob@example.com"), SyncProfile{})
		testutil.AssertNoError(t, err)

		for i := 0; i < 3; i++ {
			again, isNew, err := svc.ResolveUser(ctx, identity("auth0|bob", "bob@example.com"), SyncProfile{Name: "Changed"})
			testutil.AssertNoError(t, err)
			if isNew {
				t.Error("expected isNew=false on repeated contact")
			}
			if again.ID != first.ID {
				t.Errorf("expected stable id %s, got %s", first.ID, again.ID)
			}
			if again.Name != nil {
				t.Errorf("expected existing user to be returned unchanged, got name %q", *again.Name)
			}
		}

		testutil.AssertCount(t, db, &models.User{}, 1)
		testutil.AssertCount(t, db, &models.UserPreferences{}, 1)
	})

	t.Run("profile_overrides_token_claims", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, _, err := svc.ResolveUser(ctx, identity("auth0|carol", "token@example.com"), SyncProfile{
			Email:           "carol@example.com",
			Name:            "Carol",
			Timezone:        "Europe/Berlin",
			DefaultCurrency: "eur",
		})
		testutil.AssertNoError(t, err)

		if user.Email != "carol@example.com" {
			t.Errorf("expected profile email, got %s", user.Email)
		}
		if user.Name == nil || *user.Name != "Carol" {
			t.Errorf("expected name Carol, got %v", user.Name)
		}
		if user.Timezone != "Europe/Berlin" || user.DefaultCurrency != "EUR" {
			t.Errorf("unexpected timezone/currency %s/%s", user.Timezone, user.DefaultCurrency)
		}
	})

	t.Run("missing_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, _, err := svc.ResolveUser(ctx, identity("auth0|dave", ""), SyncProfile{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		testutil.AssertCount(t, db, &models.User{}, 0)
	})

	t.Run("invalid_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, _, err := svc.ResolveUser(ctx, identity("auth0|dave", ""), SyncProfile{Email: "not-an-email"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, _, err := svc.ResolveUser(ctx, identity("auth0|erin", "erin@example.com"), SyncProfile{DefaultCurrency: "XYZ"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("email_taken_by_other_subject", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		testutil.CreateTestUserWith(t, db, "auth0|original", "shared@example.com")

		_, _, err := svc.ResolveUser(ctx, identity("auth0|newcomer", "shared@example.com"), SyncProfile{})
		testutil.AssertAppError(t, err, "ACCOUNT_EXISTS")
		testutil.AssertCount(t, db, &models.User{}, 1)
		testutil.AssertCount(t, db, &models.UserPreferences{}, 1)
	})

	t.Run("empty_subject", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, _, err := svc.ResolveUser(ctx, identity("", "x@example.com"), SyncProfile{})
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	created := testutil.CreateTestUser(t, db)

	bySubject, err := svc.GetUserBySubject(ctx, created.Auth0ID)
	testutil.AssertNoError(t, err)
	if bySubject.ID != created.ID || bySubject.Preferences == nil {
		t.Errorf("expected user %s with preferences, got %+v", created.ID, bySubject)
	}

	byID, err := svc.GetUserByID(ctx, created.ID)
	testutil.AssertNoError(t, err)
	if byID.Auth0ID != created.Auth0ID {
		t.Errorf("expected subject %s, got %s", created.Auth0ID, byID.Auth0ID)
	}

	_, err = svc.GetUserBySubject(ctx, "auth0|missing")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")

	_, err = svc.GetUserByID(ctx, "0190f3a2-7c1e-7d4a-9b2f-2c3d4e5f6a7b")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("profile_and_preferences", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		name := "Renamed"
		tz := "America/Chicago"
		status := models.OnboardingComplete
		weekly := true
		tax := 22.5

		updated, err := svc.UpdateUser(ctx, user.ID, UserUpdate{
			Name:             &name,
			Timezone:         &tz,
			OnboardingStatus: &status,
			Preferences: &PreferencesUpdate{
				WeeklyReport:  &weekly,
				TaxRate:       &tax,
				BusinessHours: []int64{8, 18},
			},
		})
		testutil.AssertNoError(t, err)

		if updated.Name == nil || *updated.Name != "Renamed" {
			t.Errorf("expected name Renamed, got %v", updated.Name)
		}
		if updated.Timezone != tz || updated.OnboardingStatus != status {
			t.Errorf("unexpected timezone/status %s/%s", updated.Timezone, updated.OnboardingStatus)
		}
		if updated.DefaultCurrency != "USD" {
			t.Errorf("expected currency untouched, got %s", updated.DefaultCurrency)
		}
		p := updated.Preferences
		if p == nil || !p.WeeklyReport || p.TaxRate == nil || *p.TaxRate != 22.5 {
			t.Fatalf("unexpected preferences %+v", p)
		}
		if p.BusinessHours[0] != 8 || p.BusinessHours[1] != 18 {
			t.Errorf("expected business hours [8 18], got %v", p.BusinessHours)
		}
		testutil.AssertCount(t, db, &models.UserPreferences{}, 1)
	})

	t.Run("clear_tax_rate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		tax := 10.0
		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Preferences: &PreferencesUpdate{TaxRate: &tax}})
		testutil.AssertNoError(t, err)

		updated, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Preferences: &PreferencesUpdate{ClearTaxRate: true}})
		testutil.AssertNoError(t, err)
		if updated.Preferences.TaxRate != nil {
			t.Errorf("expected tax rate cleared, got %v", *updated.Preferences.TaxRate)
		}
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		badTZ := "Nowhere/Land"
		_, err := svc.UpdateUser(ctx, user.ID, UserUpdate{Timezone: &badTZ})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		badStatus := models.OnboardingStatus("done")
		_, err = svc.UpdateUser(ctx, user.ID, UserUpdate{OnboardingStatus: &badStatus})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.UpdateUser(ctx, user.ID, UserUpdate{Preferences: &PreferencesUpdate{BusinessHours: []int64{18, 8}}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		negative := -1.0
		_, err = svc.UpdateUser(ctx, user.ID, UserUpdate{Preferences: &PreferencesUpdate{TaxRate: &negative}})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		name := "x"
		_, err := svc.UpdateUser(ctx, "0190f3a2-7c1e-7d4a-9b2f-2c3d4e5f6a7b", UserUpdate{Name: &name})
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	item := testutil.CreateTestPlaidItem(t, db, user.ID, "access-1")
	account := testutil.CreateTestAccount(t, db, user.ID, item.ID, "acc-del-1")
	testutil.CreateTestTransaction(t, db, account, "txn-del-1", testDate("2024-02-01"), "10.00")

	testutil.AssertNoError(t, svc.DeleteUser(ctx, user.ID))

	testutil.AssertCount(t, db, &models.User{}, 1)
	testutil.AssertCount(t, db, &models.UserPreferences{}, 1, "user_id = ?", other.ID)
	testutil.AssertCount(t, db, &models.PlaidItem{}, 0)
	testutil.AssertCount(t, db, &models.Account{}, 0)
	testutil.AssertCount(t, db, &models.Transaction{}, 0)

	testutil.AssertAppError(t, svc.DeleteUser(ctx, user.ID), "USER_NOT_FOUND")
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	for i := 0; i < 5; i++ {
		testutil.CreateTestUser(t, db)
	}

	page, err := svc.ListUsers(ctx, pagination.PageRequest{Page: 2, PageSize: 2})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 5 || page.TotalPages != 3 {
		t.Errorf("expected 5 items over 3 pages, got %d/%d", page.TotalItems, page.TotalPages)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected 2 users on page 2, got %d", len(page.Data))
	}
}

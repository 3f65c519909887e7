package services

import (
	"testing"
	"time"

	"quid/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Jo@Example.com", "password123", "Jo", "Bloggs")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected user ID to be set")
		}
		if user.Email != "jo@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.Password == "password123" {
			t.Error("expected password to be hashed")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("jo@example.com", "password123", "", "")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("jo@example.com", "different456", "", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "password123", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	t.Run("success_resets_failure_count", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		// One failure, then a success
		_, err := svc.AttemptLogin(user.Email, "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		got, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertNoError(t, err)
		if got.ID != user.ID {
			t.Error("expected the same user back")
		}

		reloaded, err := svc.GetUserByID(user.ID)
		testutil.AssertNoError(t, err)
		if reloaded.FailedLoginAttempts != 0 {
			t.Errorf("expected failure count reset, got %d", reloaded.FailedLoginAttempts)
		}
		if reloaded.LastLoginAt == nil {
			t.Error("expected last login time recorded")
		}
	})

	t.Run("locks_after_repeated_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		for i := 0; i < maxFailedLogins; i++ {
			_, err := svc.AttemptLogin(user.Email, "wrong")
			testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
		}

		// Even the right password is refused while locked
		_, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")
	})

	t.Run("lock_expires", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		past := time.Now().Add(-time.Minute)
		if err := db.Model(user).Updates(map[string]interface{}{
			"failed_login_attempts": maxFailedLogins,
			"locked_until":          &past,
		}).Error; err != nil {
			t.Fatalf("failed to backdate lock: %v", err)
		}

		_, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertNoError(t, err)
	})

	t.Run("unknown_email_is_invalid_credentials", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.AttemptLogin("nobody@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	t.Run("store_and_fetch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "abc123"))

		hash, err := svc.GetRefreshTokenHash(user.ID)
		testutil.AssertNoError(t, err)
		if hash != "abc123" {
			t.Errorf("expected stored hash back, got %q", hash)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		err := svc.StoreRefreshTokenHash("00000000-0000-0000-0000-000000000000", "abc")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

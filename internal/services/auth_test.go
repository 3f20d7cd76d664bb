package services

import (
	"context"
	"errors"
	"testing"
)

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "anna@example.com")

	_, err := f.auth.Register(ctx, RegisterInput{Name: "Other", Email: "ANNA@example.com", Password: "secret123"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for duplicate email, got %v", err)
	}
	users, _ := f.users.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected a single user, got %d", len(users))
	}
}

func TestRegister_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.user(t, "anna@example.com")
	eve := f.user(t, "eve@example.com")

	if _, err := f.auth.Register(ctx, RegisterInput{Name: "Other", Email: "other@example.com", PhoneNumber: anna.PhoneNumber, Password: "secret123"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for taken phone, got %v", err)
	}
	if _, err := f.auth.Register(ctx, RegisterInput{Name: "NoPhone", Email: "nophone@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("users without a phone must not collide: %v", err)
	}
	if _, err := f.auth.Register(ctx, RegisterInput{Name: "NoPhone2", Email: "nophone2@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("users without a phone must not collide: %v", err)
	}

	taken := anna.PhoneNumber
	if _, err := f.users.UpdateProfile(ctx, eve.ID, ProfileUpdate{PhoneNumber: &taken}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input when taking another user's phone, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []RegisterInput{
		{Email: "a@example.com", Password: "secret123"},
		{Name: "A", Email: "a@example.com", Password: "123"},
		{Name: "A", Email: "a@example.com", Password: "secret123", Language: "fr"},
	}
	for i, in := range cases {
		if _, err := f.auth.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestLogin_EmailOrPhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "anna@example.com")
	if u.Language != "hu" || u.Role != "parent" {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	for _, ident := range []string{"anna@example.com", "+3612345"} {
		got, token, err := f.auth.Login(ctx, ident, "secret123")
		if err != nil {
			t.Fatalf("login with %s failed: %v", ident, err)
		}
		if got.ID != u.ID || token == "" {
			t.Fatalf("unexpected login result for %s", ident)
		}
		authed, err := f.auth.Authenticate(ctx, token)
		if err != nil || authed.ID != u.ID {
			t.Fatalf("token did not authenticate: %v", err)
		}
	}

	if _, _, err := f.auth.Login(ctx, "anna@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
}

func TestUserService_ProfileAndCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "anna@example.com")
	f.user(t, "taken@example.com")

	lang := "EN"
	bio := "  dog mom  "
	updated, err := f.users.UpdateProfile(ctx, u.ID, ProfileUpdate{Language: &lang, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Language != "en" || updated.Bio != "dog mom" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	bad := "xx"
	if _, err := f.users.UpdateProfile(ctx, u.ID, ProfileUpdate{Language: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid language, got %v", err)
	}

	if _, err := f.users.UpdateEmail(ctx, u.ID, "new@example.com", "wrong"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected password check, got %v", err)
	}
	if _, err := f.users.UpdateEmail(ctx, u.ID, "taken@example.com", "secret123"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
	if got, err := f.users.UpdateEmail(ctx, u.ID, "New@Example.com", "secret123"); err != nil || got.Email != "new@example.com" {
		t.Fatalf("UpdateEmail failed: %v", err)
	}

	if err := f.users.UpdatePassword(ctx, u.ID, "wrong", "another123"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected current password check, got %v", err)
	}
	if err := f.users.UpdatePassword(ctx, u.ID, "secret123", "another123"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "new@example.com", "another123"); err != nil {
		t.Fatalf("login with new credentials failed: %v", err)
	}
}

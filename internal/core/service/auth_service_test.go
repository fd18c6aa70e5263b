package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

type stubUserRepo struct {
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	stored := cloneUser(user)
	if stored.ID == "" {
		stored.ID = user.Email
	}
	r.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) CreditWallet(_ context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := r.users[id]
	if !ok || u.Role != domain.RoleBooster {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	u.Wallet = u.Wallet.Add(amount)
	return u.Wallet, nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *upd.Email {
				return nil, domain.ErrUserExists
			}
		}
	}
	upd.Apply(u)
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	user, err := svc.Register(context.Background(), registerInput("Alice@Example.com", "pass1234", domain.RoleClient))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user == nil {
		t.Fatalf("expected user, got nil")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %q", user.Email)
	}
	if user.PasswordHash == "pass1234" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleClient {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if !user.Wallet.IsZero() {
		t.Fatalf("expected empty wallet, got %s", user.Wallet)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), registerInput("", "pass1234", domain.RoleClient)); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(context.Background(), registerInput("bob@example.com", "short", domain.RoleClient)); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for short password, got %v", err)
	}
	if _, err := svc.Register(context.Background(), registerInput("bob@example.com", "pass1234", "wrong")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad role, got %v", err)
	}
}

func TestAuthService_Register_RejectsAdmin(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("mallory@example.com", "pass1234", domain.RoleAdmin))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatalf("admin registration stored a user: %+v", repo.users)
	}

	// A login can only ever yield the role the account was stored with, so
	// the rejected account has no token that passes the admin checks.
	if _, _, err := svc.Login(ctx, "mallory@example.com", "pass1234"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	booster, err := svc.Register(ctx, registerInput("mallory@example.com", "pass1234", domain.RoleBooster))
	if err != nil {
		t.Fatalf("register booster: %v", err)
	}
	wallet := NewWalletService(repo, zerolog.Nop())
	p := domain.Principal{ID: booster.ID, Role: booster.Role}
	if _, err := wallet.Adjust(ctx, p, booster.ID, decimal.NewFromInt(1000)); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self-registered booster adjusted a wallet: %v", err)
	}
}

func TestAuthService_Register_DefaultsToClient(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), "secret", time.Hour)

	user, err := svc.Register(context.Background(), registerInput("erin@example.com", "pass1234", ""))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Role != domain.RoleClient {
		t.Fatalf("expected Client, got %s", user.Role)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), registerInput("bob@example.com", "pass1234", domain.RoleClient))
	if _, err := svc.Register(context.Background(), registerInput("bob@example.com", "pass5678", domain.RoleClient)); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	registered, err := svc.Register(context.Background(), registerInput("carol@example.com", "s3cret-pass", domain.RoleBooster))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "carol@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.ID != registered.ID {
		t.Fatalf("unexpected user: %+v", user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RoleBooster) {
		t.Fatalf("expected role %s, got %v", domain.RoleBooster, claims["role"])
	}
	if claims["sub"] != registered.ID {
		t.Fatalf("expected sub %s, got %v", registered.ID, claims["sub"])
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), registerInput("dave@example.com", "goodpass", domain.RoleClient))
	if _, _, err := svc.Login(context.Background(), "dave@example.com", "badpass1"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserLooksLikeBadPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "pass1234"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func registerInput(email, password string, role domain.Role) ports.RegisterInput {
	return ports.RegisterInput{Email: email, Password: password, Role: role}
}

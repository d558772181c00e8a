package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/config"
	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/bitfantasy/nimo-crm/internal/crm/testutil"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthTestService(t *testing.T) *AuthService {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:            testutil.JWTSecret,
			AccessTokenExpire: time.Hour,
			Issuer:            "nimo-crm",
		},
	}
	return NewAuthService(repository.NewUserRepository(db), nil, cfg)
}

func TestAuthLoginAndCreateUser(t *testing.T) {
	svc := newAuthTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "zhangsan",
		Password: "secret-pass-1",
		Name:     "张三",
		Email:    "zhangsan@example.com",
		Role:     entity.RoleSales,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.PasswordHash == "secret-pass-1" {
		t.Fatal("password must not be stored in plaintext")
	}

	result, err := svc.Login(ctx, LoginRequest{Username: "zhangsan", Password: "secret-pass-1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a signed token")
	}
	if result.User.LastLoginAt == nil {
		t.Error("last_login_at should be stamped on login")
	}

	token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testutil.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token should verify with the configured secret: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["uid"] != user.ID || claims["role"] != entity.RoleSales {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthLoginFailures(t *testing.T) {
	svc := newAuthTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "lisi",
		Password: "secret-pass-2",
		Name:     "李四",
	}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// 错误密码与不存在的用户返回同一类错误，不泄露用户是否存在
	if _, err := svc.Login(ctx, LoginRequest{Username: "lisi", Password: "wrong"}); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Username: "nobody", Password: "whatever"}); !apperr.IsKind(err, apperr.KindAuthorization) {
		t.Errorf("expected authorization error for unknown user, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc := newAuthTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "short",
		Password: "1234567",
		Name:     "短密码",
	}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for short password, got %v", err)
	}

	if _, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "badrole",
		Password: "secret-pass-3",
		Name:     "坏角色",
		Role:     "superuser",
	}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

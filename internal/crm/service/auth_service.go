package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/config"
	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, rdb: rdb, cfg: cfg}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Login 用户名密码登录，签发JWT
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.Authorization("用户名或密码错误")
		}
		return nil, apperr.Upstream("用户", err)
	}
	if user.Status != "active" {
		return nil, apperr.Authorization("账号已停用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Authorization("用户名或密码错误")
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.JWT.AccessTokenExpire)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, apperr.Upstream("认证", err)
	}

	// 会话登记，登出时删除
	if s.rdb != nil {
		s.rdb.Set(ctx, sessionKey(user.ID), tokenString, s.cfg.JWT.AccessTokenExpire)
	}

	user.LastLoginAt = &now
	s.userRepo.Update(ctx, user)

	return &LoginResult{Token: tokenString, ExpiresAt: expiresAt, User: user}, nil
}

// Logout 登出，清除会话
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if s.rdb != nil {
		return s.rdb.Del(ctx, sessionKey(userID)).Err()
	}
	return nil
}

// Me 获取当前用户
func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("用户")
		}
		return nil, apperr.Upstream("用户", err)
	}
	return user, nil
}

// CreateUserRequest 创建用户请求（管理员入口）
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// CreateUser 创建用户
func (s *AuthService) CreateUser(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	role := req.Role
	if role == "" {
		role = entity.RoleSales
	}
	if role != entity.RoleSales && role != entity.RoleBOD && role != entity.RoleAdmin {
		return nil, apperr.Validation("role", "无效的角色")
	}
	if len(req.Password) < 8 {
		return nil, apperr.Validation("password", "密码至少8位")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Upstream("认证", err)
	}

	user := &entity.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Email:        req.Email,
		Role:         role,
		Status:       "active",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperr.Upstream("用户", err)
	}
	return user, nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("crm:session:%s", userID)
}

package service

import (
	"context"
	"errors"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService struct {
	UserRepo *repository.UserRepository
	JWT      config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{UserRepo: userRepo, JWT: jwtCfg}
}

type RegisterRequest struct {
	Username        string         `json:"username" binding:"required,min=3,max=150"`
	Email           string         `json:"email" binding:"required,email"`
	Password        string         `json:"password" binding:"required"`
	ConfirmPassword string         `json:"confirm_password" binding:"required"`
	Role            model.UserRole `json:"role"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 管理员账号不能自助注册
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if len(req.Password) < minPasswordLength {
		return nil, util.Validationf("password must be at least %d characters", minPasswordLength)
	}
	if req.Password != req.ConfirmPassword {
		return nil, util.ErrPasswordMismatch
	}
	role := req.Role
	if role == "" {
		role = model.Student
	}
	switch role {
	case model.Student, model.Instructor:
	case model.Admin:
		return nil, util.ErrInvalidRole
	default:
		return nil, util.ErrInvalidRole
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if taken, err := s.UserRepo.ExistsBy(ctx, "username", username); err != nil {
		return nil, err
	} else if taken {
		return nil, util.ErrUsernameTaken
	}
	if taken, err := s.UserRepo.ExistsBy(ctx, "email", email); err != nil {
		return nil, err
	} else if taken {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		Level:     1,
		IsActive:  true,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.Log.Info("user registered", zap.Uint("userId", user.ID), zap.String("role", string(role)))

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login 用户名或邮箱均可登录
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	ident := strings.TrimSpace(req.Username)
	user, err := s.UserRepo.FindByUsername(ctx, ident)
	if errors.Is(err, util.ErrUserNotFound) && strings.Contains(ident, "@") {
		user, err = s.UserRepo.FindByEmail(ctx, strings.ToLower(ident))
	}
	if errors.Is(err, util.ErrUserNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, util.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Refresh 凭未过期的令牌换发新令牌，期间被停用或删除的账号不再续期
func (s *AuthService) Refresh(ctx context.Context, userID uint) (*AuthResult, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, util.ErrUserNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, util.ErrAccountDisabled
	}

	token, err := util.GenerateJWT(user, s.JWT.Secret, s.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

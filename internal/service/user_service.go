package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buy_for_real_go/internal/model"
	"buy_for_real_go/internal/repository"
	"buy_for_real_go/pkg/database"
	"buy_for_real_go/pkg/hash"
	"buy_for_real_go/pkg/log"
	"buy_for_real_go/pkg/token"

	"gorm.io/gorm"
)

type UserService interface {
	Register(username, password string) (*model.User, error)
	Login(username, password string) (accessToken, refreshToken string, err error)
	Logout(tokenString string) error
	GetProfile(username string) (*model.User, error)
	ListUsers(page, size int) ([]model.User, int64, error)
}

type userService struct {
	userRepo   repository.UserRepository
	JWTManager *token.JWTManager
}

func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		JWTManager: jwtManager,
	}
}

func (s *userService) Register(username, password string) (*model.User, error) {
	// 1. 检查用户是否存在
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		// 查无记录是正常分支，继续注册
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	// 2. 密码进行哈希
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		// 哈希失败是异常分支，直接返回错误
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. 创建新用户并存入数据库生成 id
	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Role:     "USER",
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}

	return newUser, nil
}

func (s *userService) Login(username, password string) (accessToken, refreshToken string, err error) {
	if s.JWTManager == nil {
		return "", "", ErrInternal
	}
	// 1. 检查用户是否存在
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 用户不存在，返回统一的凭证错误，防止用户枚举
			return "", "", ErrInvalidCredentials
		}
		// 真正的数据库错误：记日志，对外返回通用错误
		log.Errorf("Login: failed to query user %q: %v", username, err)
		return "", "", ErrInternal
	}
	if existingUser == nil {
		return "", "", ErrInvalidCredentials
	}

	// 2. 检查密码是否正确
	if !hash.CheckPasswordHash(password, existingUser.Password) {
		// 密码错误，返回与"用户不存在"相同的错误，防止用户枚举
		return "", "", ErrInvalidCredentials
	}

	// 3. 生成JWT令牌（使用数据库中的 Username，避免大小写/规范化不一致）
	accessToken, refreshToken, err = s.JWTManager.GenerateToken(existingUser.ID, existingUser.Username, existingUser.Role)
	if err != nil {
		log.Errorf("Login: failed to generate token for user %q: %v", existingUser.Username, err)
		return "", "", ErrInternal
	}
	return accessToken, refreshToken, nil
}

// Logout 把当前 access token 写入 Redis 黑名单。
// 黑名单 key 的前缀必须与 AuthMiddleware 的读取侧保持一致；
// 过期时间取 token 的剩余有效期，token 自然过期后黑名单条目也随之失效。
func (s *userService) Logout(tokenString string) error {
	if s.JWTManager == nil || database.RDB == nil {
		return ErrInternal
	}

	claims, err := s.JWTManager.VerifyToken(tokenString)
	if err != nil || claims == nil || claims.ExpiresAt == nil {
		// token 本身已不可用，视为登出完成
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	blacklistKey := "token_blacklist:" + tokenString
	if err := database.RDB.Set(context.Background(), blacklistKey, "1", ttl).Err(); err != nil {
		log.Errorf("Logout: failed to blacklist token: %v", err)
		return ErrInternal
	}
	return nil
}

func (s *userService) GetProfile(username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		// 真正的数据库错误：记日志，对外返回通用错误
		log.Errorf("GetProfile: failed to query user %q: %v", username, err)
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers 管理员分页查询用户，page 从 1 开始。
func (s *userService) ListUsers(page, size int) ([]model.User, int64, error) {
	if page <= 0 || size <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.userRepo.FindWithPagination((page-1)*size, size)
}

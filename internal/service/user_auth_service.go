package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/refwallet-next/internal/cache"
	"github.com/refwallet-next/internal/config"
	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/logger"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/queue"
	"github.com/refwallet-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg             *config.Config
	userRepo        repository.UserRepository
	referralSvc     *ReferralService
	notificationSvc *NotificationService
	queueClient     *queue.Client
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, referralSvc *ReferralService, notificationSvc *NotificationService, queueClient *queue.Client) *UserAuthService {
	return &UserAuthService{
		cfg:             cfg,
		userRepo:        userRepo,
		referralSvc:     referralSvc,
		notificationSvc: notificationSvc,
		queueClient:     queueClient,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = resolveUserJWTExpireHours(s.cfg.UserJWT)
	}
	expiresAt := time.Now().Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	ReferralCode string // 推荐人邀请码，可为空
}

// Register 用户注册
//
// 注册即分配邀请码；携带推荐码时同步绑定推荐关系。注册后须在时限内
// 设置安全 PIN，否则延迟任务会将账户置为未验证。
func (s *UserAuthService) Register(input RegisterInput) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, "", time.Time{}, err
	}

	exist, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exist != nil {
		return nil, "", time.Time{}, ErrUserEmailExists
	}

	referrerCode := strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if referrerCode != "" {
		referrer, err := s.userRepo.GetByReferralCode(referrerCode)
		if err != nil {
			return nil, "", time.Time{}, err
		}
		if referrer == nil {
			return nil, "", time.Time{}, ErrReferralCodeNotFound
		}
		referrerCode = referrer.ReferralCode
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	code, err := s.referralSvc.GenerateCode()
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user := &models.User{
		Email:        normalized,
		PasswordHash: string(hashedPassword),
		DisplayName:  resolveNicknameFromEmail(normalized),
		ReferralCode: code,
		CurrentPlan:  constants.PlanBronze,
		Verified:     true,
		VerifiedAt:   &now,
		Status:       constants.UserStatusOK,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if strings.TrimSpace(input.DisplayName) != "" {
		user.DisplayName = strings.TrimSpace(input.DisplayName)
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, "", time.Time{}, ErrUserCreateFailed
	}

	if referrerCode != "" {
		bound, err := s.referralSvc.Apply(user.ID, referrerCode)
		if err != nil {
			logger.Warnw("register_bind_referrer_failed", "user_id", user.ID, "code", referrerCode, "error", err)
		} else {
			// 绑定发生在另一个事务里，后续保存必须基于绑定后的行
			user = bound
		}
	}

	timeout := time.Duration(resolvePinTimeoutMinutes(s.cfg.Security)) * time.Minute
	if err := s.queueClient.EnqueueSecurityPinTimeout(queue.SecurityPinTimeoutPayload{UserID: user.ID}, timeout); err != nil {
		logger.Warnw("register_enqueue_pin_timeout_failed", "user_id", user.ID, "error", err)
	}

	token, expiresAt, err := s.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	return user, token, expiresAt, nil
}

// Login 用户登录
func (s *UserAuthService) Login(email, password string) (*models.User, string, time.Time, error) {
	return s.LoginWithRememberMe(email, password, false)
}

// LoginWithRememberMe 用户登录（支持记住我）
func (s *UserAuthService) LoginWithRememberMe(email, password string, rememberMe bool) (*models.User, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if strings.ToLower(user.Status) != constants.UserStatusOK {
		return nil, "", time.Time{}, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	expireHours := resolveUserJWTExpireHours(s.cfg.UserJWT)
	if rememberMe {
		expireHours = resolveRememberMeExpireHours(s.cfg.UserJWT)
	}
	token, expiresAt, err := s.GenerateUserJWT(user, expireHours)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	return user, token, expiresAt, nil
}

// SetPin 设置安全 PIN
//
// PIN 只能设置一次，设置后账户保持已验证状态。
func (s *UserAuthService) SetPin(userID uint, pin string) error {
	if !isValidPin(pin) {
		return ErrPinInvalid
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.PinHash != "" {
		return ErrPinAlreadySet
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	user.PinHash = string(hashed)
	user.Verified = true
	if user.VerifiedAt == nil {
		user.VerifiedAt = &now
	}
	user.UpdatedAt = now
	if err := s.userRepo.Update(user); err != nil {
		return ErrUserUpdateFailed
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// VerifyPin 校验安全 PIN
func (s *UserAuthService) VerifyPin(userID uint, pin string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.PinHash == "" {
		return ErrPinInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)); err != nil {
		return ErrPinInvalid
	}
	return nil
}

// HandlePinTimeout 处理安全 PIN 超时
//
// 注册后未在时限内设置 PIN 的账户置为未验证；已设置 PIN 的任务直接完成。
func (s *UserAuthService) HandlePinTimeout(userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if user.PinHash != "" {
		return nil
	}

	user.Verified = false
	user.VerifiedAt = nil
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return ErrUserUpdateFailed
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))

	if _, err := s.notificationSvc.Notify(user.ID, constants.NotificationKindWarning,
		"未在时限内设置安全 PIN，账户已置为未验证，请尽快完成设置。"); err != nil {
		logger.Warnw("pin_timeout_notify_failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ChangePassword 登录态修改密码
func (s *UserAuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	if userID == 0 {
		return ErrUserNotFound
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return ErrUserUpdateFailed
	}
	_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user))
	return nil
}

// UpdateProfile 更新用户资料
func (s *UserAuthService) UpdateProfile(userID uint, displayName *string) (*models.User, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if displayName == nil || strings.TrimSpace(*displayName) == "" {
		return user, nil
	}
	user.DisplayName = strings.TrimSpace(*displayName)
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, ErrUserUpdateFailed
	}
	return user, nil
}

// GetUserByID 获取用户信息
func (s *UserAuthService) GetUserByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	return s.userRepo.GetByID(id)
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// isValidPin PIN 为 4-8 位数字
func isValidPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func resolveUserJWTExpireHours(cfg config.JWTConfig) int {
	if cfg.ExpireHours <= 0 {
		return 24
	}
	return cfg.ExpireHours
}

func resolveRememberMeExpireHours(cfg config.JWTConfig) int {
	if cfg.RememberMeExpireHours <= 0 {
		return resolveUserJWTExpireHours(cfg)
	}
	return cfg.RememberMeExpireHours
}

func resolvePinTimeoutMinutes(cfg config.SecurityConfig) int {
	if cfg.PinTimeoutMinutes <= 0 {
		return 60
	}
	return cfg.PinTimeoutMinutes
}

func resolveNicknameFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}

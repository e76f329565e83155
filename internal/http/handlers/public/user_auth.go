package public

import (
	"errors"
	"time"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	ReferralCode string `json:"referral_code"`
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// UserPinRequest 安全 PIN 请求
type UserPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UserRegister 用户注册
func (h *Handler) UserRegister(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.Register(service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		DisplayName:  req.DisplayName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondWithMappedError(c, err, registerErrorRules, response.CodeInternal, "注册失败")
		return
	}
	response.Success(c, buildAuthPayload(user, token, expiresAt))
}

// UserLogin 用户登录
func (h *Handler) UserLogin(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	user, token, expiresAt, err := h.UserAuthService.LoginWithRememberMe(req.Email, req.Password, req.RememberMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeUnauthorized, "邮箱或密码错误", nil)
		case errors.Is(err, service.ErrUserDisabled):
			respondError(c, response.CodeUnauthorized, "账号已被停用", nil)
		default:
			respondError(c, response.CodeInternal, "登录失败", err)
		}
		return
	}
	response.Success(c, buildAuthPayload(user, token, expiresAt))
}

// GetCurrentUser 获取当前用户信息
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.GetUserByID(uid)
	if err != nil || user == nil {
		respondError(c, response.CodeInternal, "用户信息获取失败", err)
		return
	}
	response.Success(c, buildUserPayload(user))
}

// UpdateUserProfile 更新用户资料
func (h *Handler) UpdateUserProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	user, err := h.UserAuthService.UpdateProfile(uid, req.DisplayName)
	if err != nil {
		respondError(c, response.CodeInternal, "资料更新失败", err)
		return
	}
	response.Success(c, buildUserPayload(user))
}

// ChangeUserPassword 修改登录密码
func (h *Handler) ChangeUserPassword(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if err := h.UserAuthService.ChangePassword(uid, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeBadRequest, "原密码错误", nil)
		case errors.Is(err, service.ErrPasswordTooWeak):
			respondError(c, response.CodeBadRequest, "密码强度不足", nil)
		default:
			respondError(c, response.CodeInternal, "密码修改失败", err)
		}
		return
	}
	response.Success(c, nil)
}

// SetUserPin 设置安全 PIN
func (h *Handler) SetUserPin(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UserPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if err := h.UserAuthService.SetPin(uid, req.Pin); err != nil {
		respondWithMappedError(c, err, pinErrorRules, response.CodeInternal, "安全 PIN 设置失败")
		return
	}
	response.Success(c, nil)
}

// VerifyUserPin 校验安全 PIN
func (h *Handler) VerifyUserPin(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UserPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if err := h.UserAuthService.VerifyPin(uid, req.Pin); err != nil {
		respondWithMappedError(c, err, pinErrorRules, response.CodeInternal, "安全 PIN 校验失败")
		return
	}
	response.Success(c, nil)
}

func buildAuthPayload(user *models.User, token string, expiresAt time.Time) gin.H {
	return gin.H{
		"user":       buildUserPayload(user),
		"token":      token,
		"expires_at": expiresAt,
	}
}

func buildUserPayload(user *models.User) gin.H {
	if user == nil {
		return gin.H{}
	}
	return gin.H{
		"id":                    user.ID,
		"email":                 user.Email,
		"display_name":          user.DisplayName,
		"referral_code":         user.ReferralCode,
		"current_plan":          user.CurrentPlan,
		"plan_cycle_start":      user.PlanCycleStart,
		"wallet_balance":        user.WalletBalance,
		"direct_referral_count": user.DirectReferralCount,
		"verified":              user.Verified,
		"pin_set":               user.PinHash != "",
		"created_at":            user.CreatedAt,
	}
}

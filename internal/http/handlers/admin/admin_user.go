package admin

import (
	"strings"

	"github.com/refwallet-next/internal/cache"
	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateUserStatusRequest 管理端修改用户状态请求
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required"` // ok/pause/block
}

// GetAdminUsers 管理端获取用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, pageSize := queryPagination(c)
	filter := repository.UserListFilter{
		Page:         page,
		PageSize:     pageSize,
		Keyword:      strings.TrimSpace(c.Query("keyword")),
		Status:       strings.TrimSpace(c.Query("status")),
		Plan:         strings.TrimSpace(c.Query("plan")),
		ReferralCode: strings.TrimSpace(c.Query("referral_code")),
		ParentCode:   strings.TrimSpace(c.Query("parent_code")),
	}
	users, total, err := h.UserRepo.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "用户列表获取失败", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetAdminUser 管理端获取用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "无效的用户 ID", nil)
		return
	}
	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "用户信息获取失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "用户不存在", nil)
		return
	}
	referrals, err := h.UserRepo.ListDirectReferrals(user.ReferralCode)
	if err != nil {
		respondError(c, response.CodeInternal, "用户信息获取失败", err)
		return
	}
	response.Success(c, gin.H{
		"user":             user,
		"direct_referrals": referrals,
	})
}

// UpdateAdminUserStatus 管理端修改用户状态
func (h *Handler) UpdateAdminUserStatus(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "无效的用户 ID", nil)
		return
	}
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "ok" && status != "pause" && status != "block" {
		respondError(c, response.CodeBadRequest, "无效的状态值", nil)
		return
	}
	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "用户信息获取失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "用户不存在", nil)
		return
	}
	user.Status = status
	if err := h.UserRepo.Update(user); err != nil {
		respondError(c, response.CodeInternal, "用户状态更新失败", err)
		return
	}
	// 状态变更后清理登录态缓存，避免被停用用户继续通过缓存校验
	if err := cache.DelUserAuthState(c.Request.Context(), user.ID); err != nil {
		requestLog(c).Warnw("admin_user_status_cache_evict_failed", "user_id", user.ID, "error", err)
	}
	response.Success(c, user)
}

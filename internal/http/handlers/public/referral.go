package public

import (
	"github.com/refwallet-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ApplyReferralRequest 绑定推荐码请求
type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// GetMyReferralSummary 查询直推概览
func (h *Handler) GetMyReferralSummary(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.ReferralService.Summary(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "推荐信息获取失败", err)
		return
	}
	response.Success(c, summary)
}

// ApplyReferralCode 绑定推荐人（仅允许一次）
func (h *Handler) ApplyReferralCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	user, err := h.ReferralService.Apply(uid, req.Code)
	if err != nil {
		respondWithMappedError(c, err, referralApplyErrorRules, response.CodeInternal, "推荐码绑定失败")
		return
	}
	response.Success(c, buildUserPayload(user))
}

// GetMyReferrer 查询推荐人
func (h *Handler) GetMyReferrer(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	referrer, err := h.ReferralService.Referrer(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "推荐人信息获取失败", err)
		return
	}
	if referrer == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, gin.H{
		"id":            referrer.ID,
		"display_name":  referrer.DisplayName,
		"referral_code": referrer.ReferralCode,
		"current_plan":  referrer.CurrentPlan,
	})
}

package public

import (
	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// PlanUpgradeRequest 升级/续费请求
type PlanUpgradeRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// GetMyPlanStatus 查询当前套餐与维护周期状态
func (h *Handler) GetMyPlanStatus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	status, err := h.PlanService.Status(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "套餐状态获取失败", err)
		return
	}
	response.Success(c, status)
}

// GetPlanEligibility 查询指定等级的升级资格
func (h *Handler) GetPlanEligibility(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	plan := c.Query("plan")
	if plan == "" {
		respondError(c, response.CodeBadRequest, "缺少 plan 参数", nil)
		return
	}
	result, err := h.PlanService.Eligibility(uid, plan)
	if err != nil {
		respondWithMappedError(c, err, planUpgradeErrorRules, response.CodeInternal, "升级资格查询失败")
		return
	}
	response.Success(c, result)
}

// UpgradePlan 购买升级或续费
func (h *Handler) UpgradePlan(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req PlanUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	result, err := h.PlanService.Upgrade(uid, req.Plan)
	if err != nil {
		respondWithMappedError(c, err, planUpgradeErrorRules, response.CodeInternal, "套餐购买失败")
		return
	}
	response.Success(c, gin.H{
		"user":     buildUserPayload(result.User),
		"purchase": result.Purchase,
		"shares":   result.Shares,
	})
}

// GetMyPlanPurchases 查询历史购买记录
func (h *Handler) GetMyPlanPurchases(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	items, total, err := h.PlanService.ListPurchases(repository.PlanPurchaseListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Plan:     c.Query("plan"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "购买记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyCommissionEvents 查询本人佣金事件
func (h *Handler) GetMyCommissionEvents(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	items, total, err := h.CommissionRepo.ListEvents(repository.CommissionEventListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Kind:     c.Query("kind"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "佣金记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

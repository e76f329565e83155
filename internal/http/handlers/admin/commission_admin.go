package admin

import (
	"strconv"
	"strings"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminCommissionEvents 管理端获取佣金事件列表
func (h *Handler) GetAdminCommissionEvents(c *gin.Context) {
	page, pageSize := queryPagination(c)
	filter := repository.CommissionEventListFilter{
		Page:     page,
		PageSize: pageSize,
		Kind:     strings.TrimSpace(c.Query("kind")),
	}
	if v, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		filter.UserID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("source_user_id"), 10, 64); err == nil {
		filter.SourceUserID = uint(v)
	}
	if v, err := strconv.Atoi(c.Query("level")); err == nil {
		filter.Level = v
	}
	events, total, err := h.CommissionRepo.ListEvents(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "佣金记录获取失败", err)
		return
	}
	response.SuccessWithPage(c, events, response.BuildPagination(page, pageSize, total))
}

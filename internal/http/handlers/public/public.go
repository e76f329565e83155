package public

import (
	"time"

	"github.com/refwallet-next/internal/cache"
	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	publicPlansCacheKey = "public:plans"
	publicPlansCacheTTL = 5 * time.Minute
)

// GetPlans 获取套餐目录（价格、维护费与升级门槛）
func (h *Handler) GetPlans(c *gin.Context) {
	var cached []service.PlanInfo
	if hit, err := cache.GetJSON(c.Request.Context(), publicPlansCacheKey, &cached); err == nil && hit {
		response.Success(c, cached)
		return
	}

	plans := h.PlanCatalog.Plans()
	_ = cache.SetJSON(c.Request.Context(), publicPlansCacheKey, plans, publicPlansCacheTTL)
	response.Success(c, plans)
}

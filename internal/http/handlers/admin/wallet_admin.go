package admin

import (
	"errors"
	"strings"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminAdjustUserWalletRequest 管理端用户余额调整请求
type AdminAdjustUserWalletRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Operation string `json:"operation"` // add/subtract
	Remark    string `json:"remark"`
}

// GetAdminUserWallet 管理端获取用户钱包信息
func (h *Handler) GetAdminUserWallet(c *gin.Context) {
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
	response.Success(c, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
		"balance": user.WalletBalance,
	})
}

// GetAdminUserWalletTransactions 管理端获取用户钱包流水
func (h *Handler) GetAdminUserWalletTransactions(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "无效的用户 ID", nil)
		return
	}
	page, pageSize := queryPagination(c)
	filter := repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    userID,
		Type:      strings.TrimSpace(c.Query("type")),
		Direction: strings.TrimSpace(c.Query("direction")),
	}
	transactions, total, err := h.WalletService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "钱包流水获取失败", err)
		return
	}
	response.SuccessWithPage(c, transactions, response.BuildPagination(page, pageSize, total))
}

// AdjustAdminUserWallet 管理端增减用户余额
func (h *Handler) AdjustAdminUserWallet(c *gin.Context) {
	userID, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "无效的用户 ID", nil)
		return
	}
	var req AdminAdjustUserWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		respondError(c, response.CodeBadRequest, "金额无效", err)
		return
	}
	op := strings.ToLower(strings.TrimSpace(req.Operation))
	if op == "" {
		op = "add"
	}
	if op != "add" && op != "subtract" {
		respondError(c, response.CodeBadRequest, "无效的操作类型", nil)
		return
	}
	delta := amount
	if op == "subtract" {
		delta = amount.Neg()
	}

	user, txn, err := h.WalletService.AdminAdjustBalance(service.WalletAdjustInput{
		UserID: userID,
		Delta:  models.NewMoneyFromDecimal(delta),
		Remark: strings.TrimSpace(req.Remark),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "用户不存在", nil)
		case errors.Is(err, service.ErrWalletInsufficientBalance):
			respondError(c, response.CodeBadRequest, "钱包余额不足", nil)
		case errors.Is(err, service.ErrWalletInvalidAmount):
			respondError(c, response.CodeBadRequest, "金额无效", nil)
		default:
			respondError(c, response.CodeInternal, "余额调整失败", err)
		}
		return
	}
	response.Success(c, gin.H{
		"balance":     user.WalletBalance,
		"transaction": txn,
	})
}

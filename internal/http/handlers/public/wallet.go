package public

import (
	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetMyWallet 查询钱包余额
func (h *Handler) GetMyWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	balance, err := h.WalletService.GetBalance(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "钱包余额获取失败", err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// GetMyWalletTransactions 查询钱包流水
func (h *Handler) GetMyWalletTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	filter := repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		UserID:    uid,
		Type:      c.Query("type"),
		Direction: c.Query("direction"),
	}
	items, total, err := h.WalletService.ListTransactions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "钱包流水获取失败", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

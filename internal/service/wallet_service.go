package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 钱包服务（余额挂在用户行上，所有变动走唯一参考号流水）
type WalletService struct {
	walletRepo repository.WalletRepository
	userRepo   repository.UserRepository
}

// WalletAdjustInput 管理员余额调整输入
type WalletAdjustInput struct {
	UserID uint
	Delta  models.Money
	Remark string
}

// WalletChangeInput 事务内余额变动输入
type WalletChangeInput struct {
	UserID        uint
	Delta         decimal.Decimal // 正数入账，负数扣款
	TxnType       string
	Reference     string
	Remark        string
	AllowNegative bool // 降级结算允许扣成负数
}

// NewWalletService 创建钱包服务
func NewWalletService(walletRepo repository.WalletRepository, userRepo repository.UserRepository) *WalletService {
	return &WalletService{walletRepo: walletRepo, userRepo: userRepo}
}

// GetBalance 查询用户余额
func (s *WalletService) GetBalance(userID uint) (models.Money, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return models.Money{}, err
	}
	if user == nil {
		return models.Money{}, ErrUserNotFound
	}
	return user.WalletBalance, nil
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.ListTransactions(filter)
}

// AdminAdjustBalance 管理员增减用户余额
func (s *WalletService) AdminAdjustBalance(input WalletAdjustInput) (*models.User, *models.WalletTransaction, error) {
	if input.UserID == 0 {
		return nil, nil, ErrUserNotFound
	}
	delta := input.Delta.Decimal.Round(2)
	if delta.IsZero() {
		return nil, nil, ErrWalletInvalidAmount
	}

	var userResult *models.User
	var txnResult *models.WalletTransaction
	if err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		user, txn, err := s.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:    input.UserID,
			Delta:     delta,
			TxnType:   constants.WalletTxnTypeAdminAdjust,
			Reference: buildWalletReference("admin_adjust", input.UserID),
			Remark:    cleanWalletRemark(input.Remark, "管理员调整余额"),
		})
		if err != nil {
			return err
		}
		userResult = user
		txnResult = txn
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return userResult, txnResult, nil
}

// ChangeBalanceInTx 在事务内锁定用户行并变动余额，参考号重复时直接返回已有流水
func (s *WalletService) ChangeBalanceInTx(tx *gorm.DB, input WalletChangeInput) (*models.User, *models.WalletTransaction, error) {
	if tx == nil {
		return nil, nil, ErrWalletUpdateFailed
	}
	if input.UserID == 0 {
		return nil, nil, ErrUserNotFound
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	delta := input.Delta.Round(2)
	if delta.IsZero() {
		return nil, nil, ErrWalletInvalidAmount
	}

	walletRepo := s.walletRepo.WithTx(tx)
	userRepo := s.userRepo.WithTx(tx)

	exists, err := walletRepo.GetTransactionByReference(reference)
	if err != nil {
		return nil, nil, err
	}
	if exists != nil {
		user, userErr := userRepo.GetByID(input.UserID)
		if userErr != nil {
			return nil, nil, userErr
		}
		return user, exists, nil
	}

	user, err := userRepo.GetByIDForUpdate(input.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	now := time.Now()
	before := user.WalletBalance.Decimal.Round(2)
	after := before.Add(delta).Round(2)
	if after.LessThan(decimal.Zero) && !input.AllowNegative {
		return nil, nil, ErrWalletInsufficientBalance
	}

	direction := constants.WalletTxnDirectionIn
	amount := delta
	if delta.LessThan(decimal.Zero) {
		direction = constants.WalletTxnDirectionOut
		amount = delta.Abs()
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"wallet_balance": models.NewMoneyFromDecimal(after),
		"updated_at":     now,
	}).Error; err != nil {
		return nil, nil, ErrWalletUpdateFailed
	}
	user.WalletBalance = models.NewMoneyFromDecimal(after)
	user.UpdatedAt = now

	txn := &models.WalletTransaction{
		UserID:        user.ID,
		Type:          strings.TrimSpace(input.TxnType),
		Direction:     direction,
		Amount:        models.NewMoneyFromDecimal(amount),
		BalanceBefore: models.NewMoneyFromDecimal(before),
		BalanceAfter:  models.NewMoneyFromDecimal(after),
		Reference:     reference,
		Remark:        cleanWalletRemark(input.Remark, "钱包变动"),
		CreatedAt:     now,
	}
	if err := walletRepo.CreateTransaction(txn); err != nil {
		return nil, nil, ErrWalletTransactionCreateFailed
	}
	return user, txn, nil
}

func cleanWalletRemark(raw string, fallback string) string {
	remark := strings.TrimSpace(raw)
	if remark == "" {
		return fallback
	}
	return remark
}

func buildWalletReference(prefix string, id uint) string {
	normalized := strings.TrimSpace(prefix)
	if normalized == "" {
		normalized = "wallet"
	}
	return fmt.Sprintf("%s:%d:%d", normalized, id, time.Now().UnixNano())
}

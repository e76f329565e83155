package service

import (
	"errors"
	"testing"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestAdminAdjustBalanceAddAndSubtract(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet@test.com", "WALLET01", nil, constants.PlanBronze, 100, nil)

	adjusted, txn, err := env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: user.ID,
		Delta:  models.NewMoneyFromDecimal(mustDecimal(t, "25.5")),
		Remark: "活动补贴",
	})
	if err != nil {
		t.Fatalf("adjust add failed: %v", err)
	}
	if !adjusted.WalletBalance.Decimal.Equal(mustDecimal(t, "125.5")) {
		t.Fatalf("balance after add want 125.5 got %s", adjusted.WalletBalance.Decimal)
	}
	if txn.Direction != constants.WalletTxnDirectionIn || txn.Type != constants.WalletTxnTypeAdminAdjust {
		t.Fatalf("txn direction/type unexpected: %s %s", txn.Direction, txn.Type)
	}
	if !txn.Amount.Decimal.Equal(mustDecimal(t, "25.5")) || txn.Remark != "活动补贴" {
		t.Fatalf("txn amount/remark unexpected: %s %q", txn.Amount.Decimal, txn.Remark)
	}

	adjusted, txn, err = env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: user.ID,
		Delta:  models.NewMoneyFromDecimal(mustDecimal(t, "-25.5")),
	})
	if err != nil {
		t.Fatalf("adjust subtract failed: %v", err)
	}
	if !adjusted.WalletBalance.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance after subtract want 100 got %s", adjusted.WalletBalance.Decimal)
	}
	// 流水金额取绝对值，方向表达入出
	if txn.Direction != constants.WalletTxnDirectionOut || !txn.Amount.Decimal.Equal(mustDecimal(t, "25.5")) {
		t.Fatalf("subtract txn unexpected: %s %s", txn.Direction, txn.Amount.Decimal)
	}
	if txn.Remark != "管理员调整余额" {
		t.Fatalf("empty remark should fall back, got %q", txn.Remark)
	}
}

func TestAdminAdjustBalanceRejectsOverdraftAndZero(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet2@test.com", "WALLET02", nil, constants.PlanBronze, 10, nil)

	_, _, err := env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: user.ID,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(-11)),
	})
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("overdraft want ErrWalletInsufficientBalance got %v", err)
	}

	_, _, err = env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: user.ID,
		Delta:  models.Money{},
	})
	if !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("zero delta want ErrWalletInvalidAmount got %v", err)
	}

	_, _, err = env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 99999,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(1)),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user want ErrUserNotFound got %v", err)
	}

	if !env.balanceOf(t, user.ID).Equal(decimal.NewFromInt(10)) {
		t.Fatalf("failed adjustments must not touch balance")
	}
	if env.countTransactions(t, user.ID) != 0 {
		t.Fatalf("failed adjustments must not leave transactions")
	}
}

func TestChangeBalanceInTxDedupesByReference(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet3@test.com", "WALLET03", nil, constants.PlanBronze, 50, nil)

	input := WalletChangeInput{
		UserID:    user.ID,
		Delta:     decimal.NewFromInt(-20),
		TxnType:   constants.WalletTxnTypeMaintenanceFee,
		Reference: "maintenance:deduct:test:2026-08-01",
		Remark:    "维护费",
	}

	var first, second *models.WalletTransaction
	if err := env.userRepo.Transaction(func(tx *gorm.DB) error {
		_, txn, err := env.walletSvc.ChangeBalanceInTx(tx, input)
		first = txn
		return err
	}); err != nil {
		t.Fatalf("first change failed: %v", err)
	}
	if err := env.userRepo.Transaction(func(tx *gorm.DB) error {
		_, txn, err := env.walletSvc.ChangeBalanceInTx(tx, input)
		second = txn
		return err
	}); err != nil {
		t.Fatalf("replayed change failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("same reference must return the existing transaction: %d != %d", second.ID, first.ID)
	}
	if !env.balanceOf(t, user.ID).Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance must change exactly once, got %s", env.balanceOf(t, user.ID))
	}
	if env.countTransactions(t, user.ID) != 1 {
		t.Fatalf("duplicate reference must not append a second transaction")
	}
}

func TestChangeBalanceInTxAllowNegative(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet4@test.com", "WALLET04", nil, constants.PlanBronze, 5, nil)

	if err := env.userRepo.Transaction(func(tx *gorm.DB) error {
		_, _, err := env.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:    user.ID,
			Delta:     decimal.NewFromInt(-8),
			TxnType:   constants.WalletTxnTypeMaintenanceFee,
			Reference: "maintenance:deduct:neg:2026-08-01",
		})
		return err
	}); !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("without AllowNegative want ErrWalletInsufficientBalance got %v", err)
	}

	if err := env.userRepo.Transaction(func(tx *gorm.DB) error {
		_, txn, err := env.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:        user.ID,
			Delta:         decimal.NewFromInt(-8),
			TxnType:       constants.WalletTxnTypeMaintenanceFee,
			Reference:     "maintenance:deduct:neg2:2026-08-01",
			AllowNegative: true,
		})
		if err != nil {
			return err
		}
		if !txn.BalanceAfter.Decimal.Equal(decimal.NewFromInt(-3)) {
			t.Fatalf("balance after want -3 got %s", txn.BalanceAfter.Decimal)
		}
		return nil
	}); err != nil {
		t.Fatalf("AllowNegative change failed: %v", err)
	}
	if !env.balanceOf(t, user.ID).Equal(decimal.NewFromInt(-3)) {
		t.Fatalf("balance want -3 got %s", env.balanceOf(t, user.ID))
	}
}

func TestChangeBalanceInTxRequiresReference(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet5@test.com", "WALLET05", nil, constants.PlanBronze, 5, nil)

	err := env.userRepo.Transaction(func(tx *gorm.DB) error {
		_, _, err := env.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
			UserID:  user.ID,
			Delta:   decimal.NewFromInt(1),
			TxnType: constants.WalletTxnTypeAdminAdjust,
		})
		return err
	})
	if !errors.Is(err, ErrWalletTransactionCreateFailed) {
		t.Fatalf("blank reference want ErrWalletTransactionCreateFailed got %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "wallet6@test.com", "WALLET06", nil, constants.PlanBronze, 100, nil)

	refs := []struct {
		delta   string
		txnType string
	}{
		{"10", constants.WalletTxnTypeCommission},
		{"-20", constants.WalletTxnTypeMaintenanceFee},
		{"5", constants.WalletTxnTypeCommission},
	}
	for i, r := range refs {
		if err := env.userRepo.Transaction(func(tx *gorm.DB) error {
			_, _, err := env.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
				UserID:    user.ID,
				Delta:     mustDecimal(t, r.delta),
				TxnType:   r.txnType,
				Reference: "list:test:" + string(rune('a'+i)),
			})
			return err
		}); err != nil {
			t.Fatalf("seed txn %d failed: %v", i, err)
		}
	}

	items, total, err := env.walletSvc.ListTransactions(repository.WalletTransactionListFilter{
		Page: 1, PageSize: 10,
		UserID: user.ID,
		Type:   constants.WalletTxnTypeCommission,
	})
	if err != nil {
		t.Fatalf("list by type failed: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("commission txns want 2 got total=%d len=%d", total, len(items))
	}

	items, total, err = env.walletSvc.ListTransactions(repository.WalletTransactionListFilter{
		Page: 1, PageSize: 10,
		UserID:    user.ID,
		Direction: constants.WalletTxnDirectionOut,
	})
	if err != nil {
		t.Fatalf("list by direction failed: %v", err)
	}
	if total != 1 || !items[0].Amount.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("out txns want the 20 deduction, got total=%d", total)
	}
}

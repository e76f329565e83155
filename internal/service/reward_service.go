package service

import (
	"fmt"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// goldMilestone 团队奖励里程碑：直推 Gold 1 人数 → 一次性奖励
type goldMilestone struct {
	Count  int
	Reward decimal.Decimal
}

var goldMilestones = []goldMilestone{
	{Count: 25, Reward: decimal.NewFromInt(200)},
	{Count: 75, Reward: decimal.NewFromInt(500)},
	{Count: 175, Reward: decimal.NewFromInt(1000)},
	{Count: 425, Reward: decimal.NewFromInt(2000)},
	{Count: 925, Reward: decimal.NewFromInt(5000)},
	{Count: 1925, Reward: decimal.NewFromInt(20000)},
}

// RewardService 团队里程碑奖励服务
type RewardService struct {
	userRepo        repository.UserRepository
	walletSvc       *WalletService
	notificationSvc *NotificationService
}

// NewRewardService 创建奖励服务
func NewRewardService(userRepo repository.UserRepository, walletSvc *WalletService, notificationSvc *NotificationService) *RewardService {
	return &RewardService{
		userRepo:        userRepo,
		walletSvc:       walletSvc,
		notificationSvc: notificationSvc,
	}
}

// HandleGold1PromotionInTx 直推用户首次达到 Gold 1 时调用：
// 累加推荐人的 gold1_count，命中里程碑则发放一次性奖励
func (s *RewardService) HandleGold1PromotionInTx(tx *gorm.DB, sponsorCode string) error {
	if tx == nil || sponsorCode == "" {
		return nil
	}
	repo := s.userRepo.WithTx(tx)
	sponsor, err := repo.GetByReferralCode(sponsorCode)
	if err != nil {
		return err
	}
	if sponsor == nil {
		return nil
	}
	locked, err := repo.GetByIDForUpdate(sponsor.ID)
	if err != nil {
		return err
	}
	if locked == nil {
		return nil
	}

	newCount := locked.Gold1Count + 1
	updates := map[string]interface{}{
		"gold1_count": newCount,
	}

	milestone, hit := nextMilestone(locked.RewardMilestone, newCount)
	if hit {
		updates["reward_milestone"] = milestone.Count
	}
	if err := tx.Model(&models.User{}).Where("id = ?", locked.ID).Updates(updates).Error; err != nil {
		return ErrUserUpdateFailed
	}

	if !hit {
		return nil
	}
	reference := fmt.Sprintf("reward:gold1:%d:%d", locked.ID, milestone.Count)
	if _, _, err := s.walletSvc.ChangeBalanceInTx(tx, WalletChangeInput{
		UserID:    locked.ID,
		Delta:     milestone.Reward,
		TxnType:   constants.WalletTxnTypeTeamReward,
		Reference: reference,
		Remark:    fmt.Sprintf("团队 Gold 1 达到 %d 人奖励", milestone.Count),
	}); err != nil {
		return err
	}
	message := fmt.Sprintf("恭喜！您的直推 Gold 1 成员达到 %d 人，获得奖励 %s。", milestone.Count, milestone.Reward.StringFixed(2))
	if _, _, err := s.notificationSvc.NotifyInTx(tx, locked.ID, constants.NotificationKindReward,
		message, "notify:"+reference); err != nil {
		return err
	}
	return nil
}

// nextMilestone 找到新计数命中的最高未发放里程碑
func nextMilestone(granted, count int) (goldMilestone, bool) {
	var result goldMilestone
	hit := false
	for _, m := range goldMilestones {
		if m.Count > granted && count >= m.Count {
			result = m
			hit = true
		}
	}
	return result, hit
}

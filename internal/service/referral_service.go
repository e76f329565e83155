package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/refwallet-next/internal/constants"
	"github.com/refwallet-next/internal/models"
	"github.com/refwallet-next/internal/repository"

	"gorm.io/gorm"
)

const referralCodeLength = 8

// ReferralService 推荐关系服务
type ReferralService struct {
	userRepo repository.UserRepository
}

// ReferralSummary 直推概况
type ReferralSummary struct {
	Total   int64            `json:"total"`
	ByPlan  map[string]int64 `json:"by_plan"`
	Members []ReferralMember `json:"members"`
}

// ReferralMember 直推成员概要
type ReferralMember struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	CurrentPlan string `json:"current_plan"`
	Verified    bool   `json:"verified"`
}

// NewReferralService 创建推荐关系服务
func NewReferralService(userRepo repository.UserRepository) *ReferralService {
	return &ReferralService{userRepo: userRepo}
}

// GenerateCode 生成未占用的推荐码
func (s *ReferralService) GenerateCode() (string, error) {
	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		existing, err := s.userRepo.GetByReferralCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrReferralCodeGenFailed
}

// Apply 绑定上级推荐码（一次性，不可更换）
func (s *ReferralService) Apply(userID uint, code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrReferralCodeNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.ParentReferralCode != nil {
		return nil, ErrReferralAlreadyBound
	}
	if strings.EqualFold(user.ReferralCode, code) {
		return nil, ErrReferralSelfApply
	}
	parent, err := s.userRepo.GetByReferralCode(code)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrReferralCodeNotFound
	}

	if err := s.userRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(userID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrUserNotFound
		}
		if locked.ParentReferralCode != nil {
			return ErrReferralAlreadyBound
		}
		locked.ParentReferralCode = &parent.ReferralCode
		if err := repo.Update(locked); err != nil {
			return ErrUserUpdateFailed
		}
		if err := tx.Model(&models.User{}).Where("id = ?", parent.ID).
			Update("direct_referral_count", gorm.Expr("direct_referral_count + 1")).Error; err != nil {
			return ErrUserUpdateFailed
		}
		user = locked
		return nil
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// Referrer 查询上级用户
func (s *ReferralService) Referrer(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.ParentReferralCode == nil {
		return nil, nil
	}
	return s.userRepo.GetByReferralCode(*user.ParentReferralCode)
}

// Summary 直推概况（人数与等级构成）
func (s *ReferralService) Summary(userID uint) (*ReferralSummary, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	referrals, err := s.userRepo.ListDirectReferrals(user.ReferralCode)
	if err != nil {
		return nil, err
	}
	summary := &ReferralSummary{
		Total:   int64(len(referrals)),
		ByPlan:  make(map[string]int64),
		Members: make([]ReferralMember, 0, len(referrals)),
	}
	for _, member := range referrals {
		summary.ByPlan[member.CurrentPlan]++
		summary.Members = append(summary.Members, ReferralMember{
			ID:          member.ID,
			DisplayName: member.DisplayName,
			CurrentPlan: member.CurrentPlan,
			Verified:    member.Verified,
		})
	}
	return summary, nil
}

// UplineChain 自下而上取上级链，最多 maxLevels 级，链路断裂时提前返回
func (s *ReferralService) UplineChain(user *models.User, maxLevels int) ([]models.User, error) {
	return s.uplineChain(s.userRepo, user, maxLevels)
}

// UplineChainTx 事务内取上级链
func (s *ReferralService) UplineChainTx(tx *gorm.DB, user *models.User, maxLevels int) ([]models.User, error) {
	if tx == nil {
		return s.UplineChain(user, maxLevels)
	}
	return s.uplineChain(s.userRepo.WithTx(tx), user, maxLevels)
}

func (s *ReferralService) uplineChain(repo repository.UserRepository, user *models.User, maxLevels int) ([]models.User, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	if maxLevels <= 0 || maxLevels > constants.MaxUplineLevels {
		maxLevels = constants.MaxUplineLevels
	}
	chain := make([]models.User, 0, maxLevels)
	seen := map[uint]struct{}{user.ID: {}}
	parentCode := user.ParentReferralCode
	for level := 1; level <= maxLevels; level++ {
		if parentCode == nil || strings.TrimSpace(*parentCode) == "" {
			break
		}
		parent, err := repo.GetByReferralCode(*parentCode)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		// 环保护：层级上限之外再挡一次重复节点
		if _, ok := seen[parent.ID]; ok {
			break
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, *parent)
		parentCode = parent.ParentReferralCode
	}
	return chain, nil
}

func generateReferralCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(referralCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

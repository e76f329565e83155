package public

import (
	"errors"

	"github.com/refwallet-next/internal/http/response"
	"github.com/refwallet-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var registerErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, msg: "邮箱格式无效"},
	{target: service.ErrUserEmailExists, code: response.CodeBadRequest, msg: "邮箱已被注册"},
	{target: service.ErrPasswordTooWeak, code: response.CodeBadRequest, msg: "密码强度不足"},
	{target: service.ErrReferralCodeNotFound, code: response.CodeBadRequest, msg: "推荐码不存在"},
}

var referralApplyErrorRules = []mappedHandlerError{
	{target: service.ErrReferralCodeNotFound, code: response.CodeBadRequest, msg: "推荐码不存在"},
	{target: service.ErrReferralSelfApply, code: response.CodeBadRequest, msg: "不能使用自己的推荐码"},
	{target: service.ErrReferralAlreadyBound, code: response.CodeBadRequest, msg: "已绑定过推荐人"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "用户不存在"},
}

var planUpgradeErrorRules = []mappedHandlerError{
	{target: service.ErrPlanUnknown, code: response.CodeBadRequest, msg: "未知的套餐等级"},
	{target: service.ErrPlanNotPurchasable, code: response.CodeBadRequest, msg: "该等级不可购买"},
	{target: service.ErrPlanAlreadyOwned, code: response.CodeBadRequest, msg: "已持有该等级，不能重复购买"},
	{target: service.ErrPlanNotEligible, code: response.CodeBadRequest, msg: "未满足升级条件"},
	{target: service.ErrPlanRenewWithoutPlan, code: response.CodeBadRequest, msg: "当前无付费套餐，无法续费"},
	{target: service.ErrWalletInsufficientBalance, code: response.CodeBadRequest, msg: "钱包余额不足"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "用户不存在"},
}

var pinErrorRules = []mappedHandlerError{
	{target: service.ErrPinInvalid, code: response.CodeBadRequest, msg: "安全 PIN 格式无效或不正确"},
	{target: service.ErrPinAlreadySet, code: response.CodeBadRequest, msg: "安全 PIN 已设置"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "用户不存在"},
}

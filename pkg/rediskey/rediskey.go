package rediskey

import "fmt"

// Key namespaces (global convention across the service)
const (
	ReferralCodePrefix  = "referral:code"
	PromotionSeenPrefix = "promo:seen"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildReferralCodeKey returns "referral:code:{code}"
func BuildReferralCodeKey(code string) string {
	return NamespaceKey(ReferralCodePrefix, code)
}

// BuildPromotionSeenKey returns "promo:seen:{scope}:{promotionID}:{subject}"
func BuildPromotionSeenKey(scope, promotionID, subject string) string {
	return fmt.Sprintf("%s:%s:%s:%s", PromotionSeenPrefix, scope, promotionID, subject)
}

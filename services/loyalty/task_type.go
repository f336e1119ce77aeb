package loyalty

// TaskProcessPurchase is the asynq task type for order events coming off the
// storefront. One task per paid order.
const TaskProcessPurchase = "loyalty:process_purchase"

type ProcessPurchasePayload struct {
	OrderID      string  `json:"order_id"`
	CustomerID   string  `json:"customer_id"`
	ProductID    string  `json:"product_id"`
	Amount       float64 `json:"amount"`
	ReferralCode string  `json:"referral_code,omitempty"`
	TraceID      string  `json:"trace_id,omitempty"`
}

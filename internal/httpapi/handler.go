package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/services/catalog"
	"dailynutra-loyaltyplane/services/customer"
	"dailynutra-loyaltyplane/services/loyalty"
	"dailynutra-loyaltyplane/services/promotion"
	"dailynutra-loyaltyplane/services/referral"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

type Handler struct {
	customers  *customer.Service
	loyalty    *loyalty.Service
	referrals  *referral.Service
	promotions *promotion.Service
	catalog    *catalog.Catalog
	tasks      *asynq.Client
}

type HandlerParams struct {
	fx.In
	Customers  *customer.Service
	Loyalty    *loyalty.Service
	Referrals  *referral.Service
	Promotions *promotion.Service
	Catalog    *catalog.Catalog
	Tasks      *asynq.Client
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		customers:  p.Customers,
		loyalty:    p.Loyalty,
		referrals:  p.Referrals,
		promotions: p.Promotions,
		catalog:    p.Catalog,
		tasks:      p.Tasks,
	}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	v1 := engine.Group("/v1")

	v1.POST("/customers", h.RegisterCustomer)
	v1.GET("/customers/:id", h.GetCustomer)

	v1.GET("/accounts/:id/balance", h.Balance)
	v1.GET("/accounts/:id/history", h.History)
	v1.GET("/accounts/:id/verify", h.VerifyChain)
	v1.GET("/accounts/:id/referrals", h.Referrals)
	v1.POST("/accounts/:id/points", h.AddPoints)
	v1.POST("/accounts/:id/rewards/:rewardId/claim", h.ClaimReward)

	v1.POST("/purchases", h.SubmitPurchase)
	v1.POST("/referrals", h.TrackReferral)

	v1.GET("/catalog/tiers", h.Tiers)
	v1.GET("/catalog/rewards", h.Rewards)

	v1.POST("/promotions", h.CreatePromotion)
	v1.GET("/promotions/eligible", h.EligiblePromotions)
	v1.POST("/promotions/:id/shown", h.PromotionShown)
}

func (h *Handler) RegisterCustomer(c *gin.Context) {
	var in customer.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	cust, account, err := h.customers.Register(c.Request.Context(), in)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"customer": cust,
		"account":  account,
	})
}

func (h *Handler) GetCustomer(c *gin.Context) {
	cust, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *Handler) Balance(c *gin.Context) {
	account, err := h.loyalty.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	resp := gin.H{
		"account_id":       account.ID,
		"total_points":     account.TotalPoints,
		"available_points": account.AvailablePoints,
		"level":            account.Level,
	}
	if missing, ok := h.catalog.PointsToNextTier(account.TotalPoints); ok {
		next := h.catalog.NextTier(account.Level)
		resp["points_to_next_tier"] = missing
		resp["next_level"] = next.Level
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) History(c *gin.Context) {
	entries, err := h.loyalty.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

func (h *Handler) VerifyChain(c *gin.Context) {
	ok, err := h.loyalty.VerifyChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}

func (h *Handler) Referrals(c *gin.Context) {
	refs, err := h.referrals.ListByAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": refs})
}

type addPointsRequest struct {
	Points      int64  `json:"points"`
	Description string `json:"description"`
}

func (h *Handler) AddPoints(c *gin.Context) {
	var in addPointsRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	if in.Points <= 0 {
		c.Error(errutil.ValidationFailed("points must be positive"))
		return
	}

	account, leveledUp, newLevel, err := h.loyalty.AddPoints(c.Request.Context(), c.Param("id"), in.Points, in.Description)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":    account,
		"leveled_up": leveledUp,
		"level":      newLevel,
	})
}

func (h *Handler) ClaimReward(c *gin.Context) {
	account, err := h.loyalty.ClaimReward(c.Request.Context(), c.Param("id"), c.Param("rewardId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

type purchaseRequest struct {
	OrderID      string  `json:"order_id"`
	CustomerID   string  `json:"customer_id"`
	ProductID    string  `json:"product_id"`
	Amount       float64 `json:"amount"`
	ReferralCode string  `json:"referral_code,omitempty"`
}

// SubmitPurchase accepts a paid-order event and queues it for asynchronous
// processing. The response acknowledges receipt, not completion.
func (h *Handler) SubmitPurchase(c *gin.Context) {
	var in purchaseRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	if in.OrderID == "" || in.CustomerID == "" {
		c.Error(errutil.ValidationFailed("order_id and customer_id are required"))
		return
	}
	if in.Amount <= 0 {
		c.Error(errutil.ValidationFailed("amount must be positive"))
		return
	}

	payload, err := json.Marshal(loyalty.ProcessPurchasePayload{
		OrderID:      in.OrderID,
		CustomerID:   in.CustomerID,
		ProductID:    in.ProductID,
		Amount:       in.Amount,
		ReferralCode: in.ReferralCode,
	})
	if err != nil {
		c.Error(err)
		return
	}

	info, err := h.tasks.EnqueueContext(c.Request.Context(),
		asynq.NewTask(loyalty.TaskProcessPurchase, payload),
		asynq.Queue("loyalty"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": info.ID,
		"queue":   info.Queue,
	})
}

type trackReferralRequest struct {
	ReferralCode string  `json:"referral_code"`
	ProductID    string  `json:"product_id"`
	Amount       float64 `json:"amount"`
}

func (h *Handler) TrackReferral(c *gin.Context) {
	var in trackReferralRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}
	if in.ReferralCode == "" {
		c.Error(errutil.ValidationFailed("referral_code is required"))
		return
	}
	if in.Amount <= 0 {
		c.Error(errutil.ValidationFailed("amount must be positive"))
		return
	}

	if err := h.referrals.Track(c.Request.Context(), in.ReferralCode, in.ProductID, in.Amount); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "tracked"})
}

func (h *Handler) Tiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers":            h.catalog.Tiers(),
		"commission_tiers": h.catalog.CommissionTiers(),
	})
}

func (h *Handler) Rewards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rewards": h.catalog.Rewards()})
}

func (h *Handler) CreatePromotion(c *gin.Context) {
	var p promotion.Promotion
	if err := c.ShouldBindJSON(&p); err != nil {
		c.Error(errutil.BadRequest("invalid request body", errutil.WithErr(err)))
		return
	}

	if err := h.promotions.Create(c.Request.Context(), &p); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) EligiblePromotions(c *gin.Context) {
	page := c.Query("page")
	if page == "" {
		c.Error(errutil.ValidationFailed("page is required"))
		return
	}

	promos, err := h.promotions.Eligible(c.Request.Context(), page,
		c.Query("session_id"), c.Query("customer_id"), time.Now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": promos})
}

func (h *Handler) PromotionShown(c *gin.Context) {
	err := h.promotions.MarkShown(c.Request.Context(), c.Param("id"),
		c.Query("session_id"), c.Query("customer_id"), time.Now())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

package api

import (
	"time"

	"moneysync/middleware"
	"moneysync/models"
	"moneysync/store"

	"github.com/gin-gonic/gin"
)

// BalanceHandler 余额流水处理器
type BalanceHandler struct {
	stores *store.Registry
}

// NewBalanceHandler 创建余额流水处理器
func NewBalanceHandler(stores *store.Registry) *BalanceHandler {
	return &BalanceHandler{stores: stores}
}

// CreateTransactionRequest 创建余额流水请求
type CreateTransactionRequest struct {
	Type   string  `json:"type" binding:"required,oneof=deposit withdrawal" example:"deposit"`
	Amount float64 `json:"amount" binding:"required,gt=0" example:"1000"`
	Date   string  `json:"date" example:"2026-01-15"`
}

// UpdateTransactionRequest 更新余额流水请求，零值字段不参与更新
type UpdateTransactionRequest struct {
	Type   *string  `json:"type" binding:"omitempty,oneof=deposit withdrawal"`
	Amount *float64 `json:"amount" binding:"omitempty,gt=0"`
	Date   *string  `json:"date"`
}

// BalanceSummary 余额汇总，全部是流水的派生量
type BalanceSummary struct {
	TotalBalance    float64 `json:"totalBalance"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	MonthlySavings  float64 `json:"monthlySavings"`
	RemainingBudget float64 `json:"remainingBudget"`
}

func ownedTransactions(items []models.BalanceTransaction, userID string) []models.BalanceTransaction {
	out := make([]models.BalanceTransaction, 0, len(items))
	for _, tx := range items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// List 获取余额流水列表
// @Summary 获取余额流水列表
// @Description 获取当前用户的余额流水，按交易时间倒序，refresh=1 强制重新拉取
// @Tags 余额
// @Produce json
// @Security BearerAuth
// @Param refresh query string false "传 1 强制重新拉取" default(0)
// @Success 200 {object} Response{data=[]models.BalanceTransaction} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/balance [get]
func (h *BalanceHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	st := h.stores.Balance

	refresh := c.Query("refresh") == "1"
	if refresh || len(ownedTransactions(st.Items(), userID)) == 0 {
		st.Fetch(c.Request.Context(), userID)
		if err := st.Err(); err != nil {
			StoreError(c, err, "获取余额流水失败")
			return
		}
	}

	Success(c, ownedTransactions(st.Items(), userID))
}

// Summary 获取余额汇总
// @Summary 获取余额汇总
// @Description 总余额、当月支出、当月储蓄、剩余预算，全部由流水实时计算
// @Tags 余额
// @Produce json
// @Security BearerAuth
// @Param refresh query string false "传 1 强制重新拉取" default(0)
// @Success 200 {object} Response{data=BalanceSummary} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/balance/summary [get]
func (h *BalanceHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	st := h.stores.Balance

	refresh := c.Query("refresh") == "1"
	if refresh || len(ownedTransactions(st.Items(), userID)) == 0 {
		st.Fetch(c.Request.Context(), userID)
		if err := st.Err(); err != nil {
			StoreError(c, err, "获取余额汇总失败")
			return
		}
	}

	now := time.Now()
	Success(c, BalanceSummary{
		TotalBalance:    st.TotalBalance(userID),
		MonthlyExpenses: st.MonthlyExpenses(userID, now),
		MonthlySavings:  st.MonthlySavings(userID, now),
		RemainingBudget: st.RemainingBudget(userID, now),
	})
}

// Create 创建余额流水
// @Summary 创建余额流水
// @Description 记录一笔存入或支出，余额随之变化
// @Tags 余额
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "流水信息"
// @Success 200 {object} Response{data=models.BalanceTransaction} "创建成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/balance [post]
func (h *BalanceHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	tx := models.BalanceTransaction{
		UserID: userID,
		Type:   req.Type,
		Amount: req.Amount,
		Date:   time.Now(),
	}
	if req.Date != "" {
		date, err := parseDateTime(req.Date)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02")
			return
		}
		tx.Date = date
	}

	created, err := h.stores.Balance.Create(c.Request.Context(), tx)
	if err != nil {
		StoreError(c, err, "创建余额流水失败")
		return
	}
	SuccessWithMessage(c, "创建成功", created)
}

// Update 更新余额流水
// @Summary 更新余额流水
// @Description 只更新请求中出现的字段，汇总随之重算
// @Tags 余额
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "流水ID"
// @Param request body UpdateTransactionRequest true "更新的字段"
// @Success 200 {object} Response{data=models.BalanceTransaction} "更新成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/v1/balance/{id} [put]
func (h *BalanceHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Balance

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "流水不存在")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	patch := map[string]any{}
	if req.Type != nil {
		patch["type"] = *req.Type
	}
	if req.Amount != nil {
		patch["amount"] = *req.Amount
	}
	if req.Date != nil {
		date, err := parseDateTime(*req.Date)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02")
			return
		}
		patch["date"] = date
	}

	if err := st.Update(c.Request.Context(), id, patch); err != nil {
		StoreError(c, err, "更新余额流水失败")
		return
	}

	updated, _ := st.GetByID(id)
	SuccessWithMessage(c, "更新成功", updated)
}

// Delete 删除余额流水
// @Summary 删除余额流水
// @Description 删除指定流水，余额相应回退
// @Tags 余额
// @Produce json
// @Security BearerAuth
// @Param id path string true "流水ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/v1/balance/{id} [delete]
func (h *BalanceHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Balance

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "流水不存在")
		return
	}

	if err := st.Delete(c.Request.Context(), id); err != nil {
		StoreError(c, err, "删除余额流水失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

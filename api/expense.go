package api

import (
	"strings"
	"time"

	"moneysync/collection"
	"moneysync/middleware"
	"moneysync/models"
	"moneysync/store"

	"github.com/gin-gonic/gin"
)

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	stores *store.Registry
}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler(stores *store.Registry) *ExpenseHandler {
	return &ExpenseHandler{stores: stores}
}

// CreateExpenseRequest 创建消费记录请求
type CreateExpenseRequest struct {
	Description   string  `json:"description" example:"午餐"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"25.5"`
	CategoryID    string  `json:"categoryId" binding:"required" example:"a1b2c3d4e5f60718293a"`
	Date          string  `json:"date" binding:"required" example:"2026-01-15 12:30:00"`
	PaymentMethod string  `json:"paymentMethod" example:"card"`
}

// UpdateExpenseRequest 更新消费记录请求，零值字段不参与更新
type UpdateExpenseRequest struct {
	Description   *string  `json:"description"`
	Amount        *float64 `json:"amount" binding:"omitempty,gt=0"`
	CategoryID    *string  `json:"categoryId"`
	Date          *string  `json:"date"`
	PaymentMethod *string  `json:"paymentMethod"`
}

// parseDateTime 宽松解析时间：RFC3339、日期时间、纯日期皆可
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// ownedExpenses 仓库是进程级缓存，返回前按当前用户过滤
func ownedExpenses(items []models.Expense, userID string) []models.Expense {
	out := make([]models.Expense, 0, len(items))
	for _, e := range items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// ExpenseView 列表响应体：附带解析后的类别名
// 类别是弱引用，已删除的类别名为空，由前端按未知类别显示
type ExpenseView struct {
	models.Expense
	CategoryName string `json:"categoryName,omitempty"`
}

func (h *ExpenseHandler) expenseViews(items []models.Expense) []ExpenseView {
	out := make([]ExpenseView, 0, len(items))
	for _, e := range items {
		view := ExpenseView{Expense: e}
		if cat, ok := h.stores.Categories.GetByID(e.CategoryID); ok {
			view.CategoryName = cat.Name
		}
		out = append(out, view)
	}
	return out
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 获取当前用户的消费记录，默认读仓库缓存，refresh=1 强制重新拉取
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param refresh query string false "传 1 强制重新拉取" default(0)
// @Success 200 {object} Response{data=[]ExpenseView} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	st := h.stores.Expenses

	refresh := c.Query("refresh") == "1"
	if refresh || len(ownedExpenses(st.Items(), userID)) == 0 {
		// 重新拉取走查询器加同步桥：结果深比较后调和进仓库，
		// 远程数据没变就不写条目，订阅方不会被无效更新打扰
		f := collection.NewFetcher(h.stores.Remote)
		bridge := collection.NewBridge(f, st)
		f.Reload(c.Request.Context(), st.Query(userID))
		snap := f.Snapshot()
		bridge.Close()
		if snap.Err != nil {
			StoreError(c, snap.Err, "获取消费记录失败")
			return
		}
		h.stores.Categories.Fetch(c.Request.Context(), userID)
	}

	Success(c, h.expenseViews(ownedExpenses(st.Items(), userID)))
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description 创建一条新的消费记录
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateExpenseRequest true "消费记录信息"
// @Success 200 {object} Response{data=models.Expense} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	date, err := parseDateTime(req.Date)
	if err != nil {
		BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
		return
	}

	expense := models.Expense{
		UserID:        userID,
		Description:   strings.TrimSpace(req.Description),
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		Date:          date,
		PaymentMethod: req.PaymentMethod,
	}

	created, err := h.stores.Expenses.Create(c.Request.Context(), expense)
	if err != nil {
		StoreError(c, err, "创建消费记录失败")
		return
	}

	SuccessWithMessage(c, "创建成功", created)
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 只更新请求中出现的字段
// @Tags 消费记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "记录ID"
// @Param request body UpdateExpenseRequest true "更新的字段"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Expenses

	existing, ok := st.GetByID(id)
	if !ok {
		// 缓存可能未加载，拉一次再找
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "记录不存在")
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	patch := map[string]any{}
	if req.Description != nil {
		patch["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Amount != nil {
		patch["amount"] = *req.Amount
	}
	if req.CategoryID != nil {
		patch["categoryId"] = *req.CategoryID
	}
	if req.Date != nil {
		date, err := parseDateTime(*req.Date)
		if err != nil {
			BadRequest(c, "时间格式错误，应为: 2006-01-02 15:04:05")
			return
		}
		patch["date"] = date
	}
	if req.PaymentMethod != nil {
		patch["paymentMethod"] = *req.PaymentMethod
	}

	if err := st.Update(c.Request.Context(), id, patch); err != nil {
		StoreError(c, err, "更新消费记录失败")
		return
	}

	updated, _ := st.GetByID(id)
	SuccessWithMessage(c, "更新成功", updated)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Description 删除指定的消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path string true "记录ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/v1/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Expenses

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "记录不存在")
		return
	}

	if err := st.Delete(c.Request.Context(), id); err != nil {
		StoreError(c, err, "删除消费记录失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

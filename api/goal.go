package api

import (
	"strings"
	"time"

	"moneysync/middleware"
	"moneysync/models"
	"moneysync/store"

	"github.com/gin-gonic/gin"
)

// GoalHandler 储蓄目标处理器
type GoalHandler struct {
	stores *store.Registry
}

// NewGoalHandler 创建储蓄目标处理器
func NewGoalHandler(stores *store.Registry) *GoalHandler {
	return &GoalHandler{stores: stores}
}

// CreateGoalRequest 创建储蓄目标请求
type CreateGoalRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=100" example:"买车"`
	TargetAmount  float64 `json:"targetAmount" binding:"required,gt=0" example:"10000"`
	CurrentAmount float64 `json:"currentAmount" binding:"omitempty,gte=0" example:"2000"`
	Deadline      string  `json:"deadline" example:"2026-12-31"`
	Category      string  `json:"category" example:"大件"`
}

// UpdateGoalRequest 更新储蓄目标请求
type UpdateGoalRequest struct {
	Name          *string  `json:"name" binding:"omitempty,min=1,max=100"`
	TargetAmount  *float64 `json:"targetAmount" binding:"omitempty,gt=0"`
	CurrentAmount *float64 `json:"currentAmount" binding:"omitempty,gte=0"`
	Deadline      *string  `json:"deadline"`
	Category      *string  `json:"category"`
}

// GoalView 带派生字段的储蓄目标响应体
type GoalView struct {
	models.Goal
	Progress      float64 `json:"progress"`
	DaysRemaining int     `json:"daysRemaining"`
}

func goalView(g models.Goal, now time.Time) GoalView {
	return GoalView{
		Goal:          g,
		Progress:      g.Progress(),
		DaysRemaining: g.DaysRemaining(now),
	}
}

func ownedGoalViews(items []models.Goal, userID string, now time.Time) []GoalView {
	out := make([]GoalView, 0, len(items))
	for _, g := range items {
		if g.UserID == userID {
			out = append(out, goalView(g, now))
		}
	}
	return out
}

// List 获取储蓄目标列表
// @Summary 获取储蓄目标列表
// @Description 获取当前用户的储蓄目标，附带进度和剩余天数，refresh=1 强制重新拉取
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param refresh query string false "传 1 强制重新拉取" default(0)
// @Success 200 {object} Response{data=[]GoalView} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	st := h.stores.Goals
	now := time.Now()

	refresh := c.Query("refresh") == "1"
	if refresh || len(ownedGoalViews(st.Items(), userID, now)) == 0 {
		st.Fetch(c.Request.Context(), userID)
		if err := st.Err(); err != nil {
			StoreError(c, err, "获取储蓄目标失败")
			return
		}
	}

	Success(c, ownedGoalViews(st.Items(), userID, now))
}

// Create 创建储蓄目标
// @Summary 创建储蓄目标
// @Description 创建新的储蓄目标
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateGoalRequest true "目标信息"
// @Success 200 {object} Response{data=GoalView} "创建成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	goal := models.Goal{
		UserID:        userID,
		Name:          strings.TrimSpace(req.Name),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Category:      req.Category,
	}
	if req.Deadline != "" {
		deadline, err := parseDateTime(req.Deadline)
		if err != nil {
			BadRequest(c, "截止时间格式错误，应为: 2006-01-02")
			return
		}
		goal.Deadline = deadline
	}

	created, err := h.stores.Goals.Create(c.Request.Context(), goal)
	if err != nil {
		StoreError(c, err, "创建储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "创建成功", goalView(created, time.Now()))
}

// Update 更新储蓄目标
// @Summary 更新储蓄目标
// @Description 只更新请求中出现的字段，常见用途是推进 currentAmount
// @Tags 储蓄目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Param request body UpdateGoalRequest true "更新的字段"
// @Success 200 {object} Response{data=GoalView} "更新成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Goals

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "目标不存在")
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	patch := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(c, "名称不能为空")
			return
		}
		patch["name"] = name
	}
	if req.TargetAmount != nil {
		patch["targetAmount"] = *req.TargetAmount
	}
	if req.CurrentAmount != nil {
		patch["currentAmount"] = *req.CurrentAmount
	}
	if req.Deadline != nil {
		deadline, err := parseDateTime(*req.Deadline)
		if err != nil {
			BadRequest(c, "截止时间格式错误，应为: 2006-01-02")
			return
		}
		patch["deadline"] = deadline
	}
	if req.Category != nil {
		patch["category"] = *req.Category
	}

	if err := st.Update(c.Request.Context(), id, patch); err != nil {
		StoreError(c, err, "更新储蓄目标失败")
		return
	}

	updated, _ := st.GetByID(id)
	SuccessWithMessage(c, "更新成功", goalView(updated, time.Now()))
}

// Delete 删除储蓄目标
// @Summary 删除储蓄目标
// @Description 删除指定的储蓄目标
// @Tags 储蓄目标
// @Produce json
// @Security BearerAuth
// @Param id path string true "目标ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Goals

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "目标不存在")
		return
	}

	if err := st.Delete(c.Request.Context(), id); err != nil {
		StoreError(c, err, "删除储蓄目标失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

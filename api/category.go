package api

import (
	"strings"

	"moneysync/middleware"
	"moneysync/models"
	"moneysync/store"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 消费类别处理器
type CategoryHandler struct {
	stores *store.Registry
}

// NewCategoryHandler 创建消费类别处理器
func NewCategoryHandler(stores *store.Registry) *CategoryHandler {
	return &CategoryHandler{stores: stores}
}

// CreateCategoryRequest 创建类别请求
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50" example:"餐饮"`
	Sort int    `json:"sort" example:"1"`
}

// UpdateCategoryRequest 更新类别请求
type UpdateCategoryRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=50"`
	Sort *int    `json:"sort"`
}

func ownedCategories(items []models.Category, userID string) []models.Category {
	out := make([]models.Category, 0, len(items))
	for _, cat := range items {
		if cat.UserID == userID {
			out = append(out, cat)
		}
	}
	return out
}

// List 获取消费类别列表
// @Summary 获取消费类别列表
// @Description 获取当前用户的类别，按名称升序，refresh=1 强制重新拉取
// @Tags 消费类别
// @Produce json
// @Security BearerAuth
// @Param refresh query string false "传 1 强制重新拉取" default(0)
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	st := h.stores.Categories

	refresh := c.Query("refresh") == "1"
	if refresh || len(ownedCategories(st.Items(), userID)) == 0 {
		st.Fetch(c.Request.Context(), userID)
		if err := st.Err(); err != nil {
			StoreError(c, err, "获取类别失败")
			return
		}
	}

	Success(c, ownedCategories(st.Items(), userID))
}

// Create 创建消费类别
// @Summary 创建消费类别
// @Description 创建新的消费类别
// @Tags 消费类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.Category} "创建成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	created, err := h.stores.Categories.Create(c.Request.Context(), models.Category{
		UserID: userID,
		Name:   strings.TrimSpace(req.Name),
		Sort:   req.Sort,
	})
	if err != nil {
		StoreError(c, err, "创建类别失败")
		return
	}
	SuccessWithMessage(c, "创建成功", created)
}

// Update 更新消费类别
// @Summary 更新消费类别
// @Description 只更新请求中出现的字段
// @Tags 消费类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "类别ID"
// @Param request body UpdateCategoryRequest true "更新的字段"
// @Success 200 {object} Response{data=models.Category} "更新成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Categories

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "类别不存在")
		return
	}

	var req UpdateCategoryRequest
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
	if req.Sort != nil {
		patch["sort"] = *req.Sort
	}

	if err := st.Update(c.Request.Context(), id, patch); err != nil {
		StoreError(c, err, "更新类别失败")
		return
	}

	updated, _ := st.GetByID(id)
	SuccessWithMessage(c, "更新成功", updated)
}

// Delete 删除消费类别
// @Summary 删除消费类别
// @Description 删除类别；引用它的消费记录保持原样，categoryId 悬空由前端兜底显示
// @Tags 消费类别
// @Produce json
// @Security BearerAuth
// @Param id path string true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id := c.Param("id")
	st := h.stores.Categories

	existing, ok := st.GetByID(id)
	if !ok {
		st.Fetch(c.Request.Context(), userID)
		existing, ok = st.GetByID(id)
	}
	if !ok || existing.UserID != userID {
		NotFound(c, "类别不存在")
		return
	}

	if err := st.Delete(c.Request.Context(), id); err != nil {
		StoreError(c, err, "删除类别失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

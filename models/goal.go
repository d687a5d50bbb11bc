package models

import (
	"math"
	"strings"
	"time"

	"moneysync/remote"
)

// Goal 储蓄目标
// Category 是自由文本标签，不是类别外键
type Goal struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"targetAmount"`
	CurrentAmount float64   `json:"currentAmount"`
	Deadline      time.Time `json:"deadline"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate 本地前置校验
func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return remote.ValidationError("goal", "userId 不能为空")
	}
	if strings.TrimSpace(g.Name) == "" {
		return remote.ValidationError("goal", "名称不能为空")
	}
	if g.TargetAmount <= 0 {
		return remote.ValidationError("goal", "目标金额必须大于 0")
	}
	if g.CurrentAmount < 0 {
		return remote.ValidationError("goal", "当前金额不能为负")
	}
	return nil
}

// Progress 完成进度百分比，派生量不落库。
// currentAmount 允许超过目标，所以结果可以超过 100。
func (g Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return g.CurrentAmount / g.TargetAmount * 100
}

// DaysRemaining 距截止日期的剩余天数（向上取整），已过期返回 0
func (g Goal) DaysRemaining(now time.Time) int {
	if g.Deadline.IsZero() || !g.Deadline.After(now) {
		return 0
	}
	return int(math.Ceil(g.Deadline.Sub(now).Hours() / 24))
}

// Fields 转换为远程文档字段载荷（不含 ID 和服务端时间戳）
func (g Goal) Fields() map[string]any {
	return map[string]any{
		"userId":        g.UserID,
		"name":          g.Name,
		"targetAmount":  g.TargetAmount,
		"currentAmount": g.CurrentAmount,
		"deadline":      g.Deadline,
		"category":      g.Category,
	}
}

// GoalFromDocument 由远程文档还原储蓄目标
func GoalFromDocument(d remote.Document) Goal {
	return Goal{
		ID:            d.ID,
		UserID:        d.String("userId"),
		Name:          d.String("name"),
		TargetAmount:  d.Float("targetAmount"),
		CurrentAmount: d.Float("currentAmount"),
		Deadline:      d.Time("deadline"),
		Category:      d.String("category"),
		CreatedAt:     d.Time("createdAt"),
		UpdatedAt:     d.Time("updatedAt"),
	}
}

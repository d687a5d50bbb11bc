package models

import (
	"strings"
	"time"

	"moneysync/remote"
)

// Expense 消费记录
// CategoryID 是对类别的弱引用：类别被删除后引用悬空，
// 展示层按"未知类别"处理，这里不做引用完整性约束。
type Expense struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	CategoryID    string    `json:"categoryId"`
	Date          time.Time `json:"date"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate 本地前置校验
func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return remote.ValidationError("expense", "userId 不能为空")
	}
	if e.Amount <= 0 {
		return remote.ValidationError("expense", "金额必须大于 0")
	}
	if e.Date.IsZero() {
		return remote.ValidationError("expense", "消费时间不能为空")
	}
	return nil
}

// Fields 转换为远程文档字段载荷（不含 ID 和服务端时间戳）
func (e Expense) Fields() map[string]any {
	return map[string]any{
		"userId":        e.UserID,
		"description":   e.Description,
		"amount":        e.Amount,
		"categoryId":    e.CategoryID,
		"date":          e.Date,
		"paymentMethod": e.PaymentMethod,
	}
}

// ExpenseFromDocument 由远程文档还原消费记录
func ExpenseFromDocument(d remote.Document) Expense {
	return Expense{
		ID:            d.ID,
		UserID:        d.String("userId"),
		Description:   d.String("description"),
		Amount:        d.Float("amount"),
		CategoryID:    d.String("categoryId"),
		Date:          d.Time("date"),
		PaymentMethod: d.String("paymentMethod"),
		CreatedAt:     d.Time("createdAt"),
		UpdatedAt:     d.Time("updatedAt"),
	}
}

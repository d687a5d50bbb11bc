package models

import (
	"strings"
	"time"

	"moneysync/remote"
)

// 余额流水类型
const (
	TransactionDeposit    = "deposit"
	TransactionWithdrawal = "withdrawal"
)

// BalanceTransaction 余额流水：存入为正贡献，支出为负贡献
type BalanceTransaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate 本地前置校验
func (t BalanceTransaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return remote.ValidationError("balance", "userId 不能为空")
	}
	if t.Type != TransactionDeposit && t.Type != TransactionWithdrawal {
		return remote.ValidationError("balance", "类型必须为 deposit 或 withdrawal")
	}
	if t.Amount <= 0 {
		return remote.ValidationError("balance", "金额必须大于 0")
	}
	return nil
}

// Signed 带符号的余额贡献：deposit 为 +amount，withdrawal 为 -amount
func (t BalanceTransaction) Signed() float64 {
	if t.Type == TransactionWithdrawal {
		return -t.Amount
	}
	return t.Amount
}

// TotalBalance 流水的带符号求和，与存储顺序无关
func TotalBalance(txs []BalanceTransaction) float64 {
	var total float64
	for _, t := range txs {
		total += t.Signed()
	}
	return total
}

// Fields 转换为远程文档字段载荷（不含 ID 和服务端时间戳）
func (t BalanceTransaction) Fields() map[string]any {
	return map[string]any{
		"userId": t.UserID,
		"type":   t.Type,
		"amount": t.Amount,
		"date":   t.Date,
	}
}

// BalanceTransactionFromDocument 由远程文档还原余额流水
func BalanceTransactionFromDocument(d remote.Document) BalanceTransaction {
	return BalanceTransaction{
		ID:        d.ID,
		UserID:    d.String("userId"),
		Type:      d.String("type"),
		Amount:    d.Float("amount"),
		Date:      d.Time("date"),
		CreatedAt: d.Time("createdAt"),
		UpdatedAt: d.Time("updatedAt"),
	}
}

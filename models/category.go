package models

import (
	"strings"

	"moneysync/remote"
)

// Category 消费类别，属于单个用户
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Sort   int    `json:"sort"`
}

// Validate 本地前置校验，失败时不会发起任何远程调用
func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return remote.ValidationError("category", "userId 不能为空")
	}
	if strings.TrimSpace(c.Name) == "" {
		return remote.ValidationError("category", "名称不能为空")
	}
	return nil
}

// Fields 转换为远程文档字段载荷（不含 ID 和服务端时间戳）
func (c Category) Fields() map[string]any {
	return map[string]any{
		"userId": c.UserID,
		"name":   c.Name,
		"sort":   c.Sort,
	}
}

// CategoryFromDocument 由远程文档还原类别：服务端ID并入字段载荷
func CategoryFromDocument(d remote.Document) Category {
	return Category{
		ID:     d.ID,
		UserID: d.String("userId"),
		Name:   d.String("name"),
		Sort:   d.Int("sort"),
	}
}

package remote

import (
	"context"
	"time"
)

// 远程集合名称常量，修改会破坏已有数据的兼容性
const (
	CollectionExpenses   = "expenses"
	CollectionCategories = "categories"
	CollectionGoals      = "goals"
	CollectionBalance    = "balance"
)

// Store 远程文档存储接口
// 所有实体以文档形式保存在按名称区分的集合里，服务端是唯一的数据权威，
// 本地状态只是缓存。所有方法都可能因网络/权限/记录不存在而失败。
type Store interface {
	// ReadAll 执行查询，按查询的排序返回文档列表
	ReadAll(ctx context.Context, q Query) ([]Document, error)
	// Create 写入新文档，返回服务端分配的文档ID
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update 只更新给定的字段，其余字段保持不变
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete 删除文档
	Delete(ctx context.Context, collection, id string) error
}

// serverTimestamp 服务器时间戳占位符类型
type serverTimestamp struct{}

// ServerTimestamp 字段值占位符，写入时由存储端替换为服务器当前时间
var ServerTimestamp = serverTimestamp{}

// Document 一条远程文档：服务端分配的ID加字段载荷
type Document struct {
	ID     string
	Fields map[string]any
}

// String 读取字符串字段，缺失或类型不符返回空串
func (d Document) String(key string) string {
	if v, ok := d.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Float 读取数值字段，缺失或类型不符返回 0
func (d Document) Float(key string) float64 {
	switch v := d.Fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Int 读取整数字段
func (d Document) Int(key string) int {
	return int(d.Float(key))
}

// Time 读取时间字段，兼容 time.Time 和 RFC3339 字符串两种形态
func (d Document) Time(key string) time.Time {
	switch v := d.Fields[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone 深拷贝字段载荷，避免调用方修改共享 map
func (d Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return Document{ID: d.ID, Fields: fields}
}

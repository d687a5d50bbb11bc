package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"moneysync/remote"

	"gorm.io/gorm"
)

// documentRow 文档表行：集合名 + 服务端ID + JSON 字段载荷
// created_at/updated_at 由数据库侧维护，作为服务器时间戳的权威来源
type documentRow struct {
	ID         uint   `gorm:"primaryKey"`
	Collection string `gorm:"size:50;not null;uniqueIndex:idx_collection_doc,priority:1"`
	DocID      string `gorm:"size:64;not null;uniqueIndex:idx_collection_doc,priority:2"`
	Fields     string `gorm:"type:json;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 设置表名
func (documentRow) TableName() string {
	return "documents"
}

// GormStore MySQL 文档存储驱动，把查询描述符翻译成 JSON_EXTRACT 查询
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore 创建 MySQL 文档存储驱动
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// 字段名只允许普通标识符，防止拼进 JSON 路径的注入
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func jsonPath(field string) (string, error) {
	if !fieldNamePattern.MatchString(field) {
		return "", fmt.Errorf("非法字段名: %q", field)
	}
	return "$." + field, nil
}

// ReadAll 执行查询
func (s *GormStore) ReadAll(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	op := q.Collection + ".read"

	tx := s.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("collection = ?", q.Collection)

	for _, f := range q.Filters {
		path, err := jsonPath(f.Field)
		if err != nil {
			return nil, remote.ValidationError(op, err.Error())
		}
		sqlOp, err := sqlOperator(f.Op)
		if err != nil {
			return nil, remote.ValidationError(op, err.Error())
		}
		if sv, ok := encodeStringValue(f.Value); ok {
			// 字符串（含时间）按 JSON_UNQUOTE 后的文本比较，RFC3339 的字典序即时间序
			tx = tx.Where(fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(fields, '%s')) %s ?", path, sqlOp), sv)
		} else {
			tx = tx.Where(fmt.Sprintf("JSON_EXTRACT(fields, '%s') %s ?", path, sqlOp), f.Value)
		}
	}

	for _, o := range q.Orders {
		path, err := jsonPath(o.Field)
		if err != nil {
			return nil, remote.ValidationError(op, err.Error())
		}
		dir := "ASC"
		if o.Direction == remote.Desc {
			dir = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("JSON_EXTRACT(fields, '%s') %s", path, dir))
	}

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, remote.TransportError(op, err)
	}

	docs := make([]remote.Document, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return nil, remote.TransportError(op, err)
		}
		docs = append(docs, remote.Document{ID: row.DocID, Fields: fields})
	}
	return docs, nil
}

// Create 写入新文档
func (s *GormStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	op := collection + ".create"

	payload, err := json.Marshal(s.resolveTimestamps(fields))
	if err != nil {
		return "", remote.TransportError(op, err)
	}

	row := documentRow{
		Collection: collection,
		DocID:      newDocID(),
		Fields:     string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", remote.TransportError(op, err)
	}
	return row.DocID, nil
}

// Update 合并更新给定字段（读取-合并-写回）
func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	op := collection + ".update"

	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return remote.NotFoundError(op, id)
		}
		return remote.TransportError(op, err)
	}

	existing := make(map[string]any)
	if err := json.Unmarshal([]byte(row.Fields), &existing); err != nil {
		return remote.TransportError(op, err)
	}
	for k, v := range s.resolveTimestamps(fields) {
		existing[k] = v
	}
	payload, err := json.Marshal(existing)
	if err != nil {
		return remote.TransportError(op, err)
	}

	err = s.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Update("fields", string(payload)).Error
	if err != nil {
		return remote.TransportError(op, err)
	}
	return nil
}

// Delete 删除文档
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	op := collection + ".delete"

	tx := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{})
	if tx.Error != nil {
		return remote.TransportError(op, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return remote.NotFoundError(op, id)
	}
	return nil
}

// resolveTimestamps 把 ServerTimestamp 占位符替换为服务器当前时间
func (s *GormStore) resolveTimestamps(fields map[string]any) map[string]any {
	now := s.now()
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == remote.ServerTimestamp {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func sqlOperator(op remote.Operator) (string, error) {
	switch op {
	case remote.OpEqual:
		return "=", nil
	case remote.OpNotEqual:
		return "<>", nil
	case remote.OpGreater:
		return ">", nil
	case remote.OpGreaterEq:
		return ">=", nil
	case remote.OpLess:
		return "<", nil
	case remote.OpLessEq:
		return "<=", nil
	}
	return "", fmt.Errorf("不支持的操作符: %q", op)
}

// encodeStringValue 字符串和时间走文本比较路径
func encodeStringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	}
	return "", false
}

// newDocID 生成服务端文档ID（20位十六进制）
func newDocID() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 不可用时退回到时间戳，仅影响ID形态
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

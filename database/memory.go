package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"moneysync/remote"
)

// MemoryStore 内存文档存储
// driver=memory 时作为正式存储使用（开发模式），同时也是
// 各层单元测试依赖的存储实现。语义与 MySQL 驱动保持一致。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	seq         int
	now         func() time.Time
}

// NewMemoryStore 创建内存文档存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		now:         time.Now,
	}
}

// SetClock 替换服务器时钟，测试用
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// ReadAll 执行查询，按排序条件返回文档副本
func (s *MemoryStore) ReadAll(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote.TransportError(q.Collection+".read", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []remote.Document
	for id, fields := range s.collections[q.Collection] {
		if !matchFilters(fields, q.Filters) {
			continue
		}
		docs = append(docs, remote.Document{ID: id, Fields: fields}.Clone())
	}

	sortDocuments(docs, q.Orders)
	return docs, nil
}

// Create 写入新文档，返回服务端分配的ID
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", remote.TransportError(collection+".create", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("%s-%06d", collection, s.seq)

	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	coll[id] = s.resolveTimestamps(fields)
	return id, nil
}

// Update 合并更新给定字段，目标不存在时返回 NotFound
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return remote.TransportError(collection+".update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return remote.NotFoundError(collection+".update", id)
	}
	for k, v := range s.resolveTimestamps(fields) {
		existing[k] = v
	}
	return nil
}

// Delete 删除文档，目标不存在时返回 NotFound
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return remote.TransportError(collection+".delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return remote.NotFoundError(collection+".delete", id)
	}
	delete(s.collections[collection], id)
	return nil
}

// resolveTimestamps 把 ServerTimestamp 占位符替换为服务器当前时间
func (s *MemoryStore) resolveTimestamps(fields map[string]any) map[string]any {
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

func matchFilters(fields map[string]any, filters []remote.Filter) bool {
	for _, f := range filters {
		cmp, ok := compareValues(fields[f.Field], f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case remote.OpEqual:
			if cmp != 0 {
				return false
			}
		case remote.OpNotEqual:
			if cmp == 0 {
				return false
			}
		case remote.OpGreater:
			if cmp <= 0 {
				return false
			}
		case remote.OpGreaterEq:
			if cmp < 0 {
				return false
			}
		case remote.OpLess:
			if cmp >= 0 {
				return false
			}
		case remote.OpLessEq:
			if cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sortDocuments(docs []remote.Document, orders []remote.Order) {
	if len(orders) == 0 {
		// 无排序条件时按ID保证稳定输出
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			cmp, ok := compareValues(docs[i].Fields[o.Field], docs[j].Fields[o.Field])
			if !ok || cmp == 0 {
				continue
			}
			if o.Direction == remote.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues 跨类型的值比较，返回 -1/0/1；类型不可比时 ok=false
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1, true
			case av.After(bv):
				return 1, true
			}
			return 0, true
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			}
			return 1, true
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

package store

import (
	"context"
	"reflect"
	"time"

	"moneysync/models"
	"moneysync/remote"
)

// CategoryStore 消费类别仓库
// 类别被删除时不级联处理引用它的消费记录，悬空的 categoryId
// 由展示层按"未知类别"处理（弱引用语义）。
type CategoryStore struct {
	state
	remote remote.Store
	items  []models.Category
	now    func() time.Time
}

// NewCategoryStore 创建消费类别仓库
func NewCategoryStore(rs remote.Store) *CategoryStore {
	return &CategoryStore{remote: rs, now: time.Now}
}

// Query 本仓库的默认查询描述符：按用户过滤，名称升序
func (s *CategoryStore) Query(userID string) remote.Query {
	return remote.NewQuery(remote.CollectionCategories).
		Where("userId", remote.OpEqual, userID).
		OrderBy("name", remote.Asc)
}

// Items 当前条目快照副本
func (s *CategoryStore) Items() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, len(s.items))
	copy(out, s.items)
	return out
}

// SetItems 整体替换条目，无副作用
func (s *CategoryStore) SetItems(items []models.Category) {
	s.mu.Lock()
	s.items = append([]models.Category(nil), items...)
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// GetByID 纯本地查找，绝不触发远程调用
func (s *CategoryStore) GetByID(id string) (models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.items {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

// Fetch 对远程存储发起范围查询，成功后整体替换条目
func (s *CategoryStore) Fetch(ctx context.Context, userID string) {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading = true
	s.err = nil
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)

	docs, err := s.remote.ReadAll(ctx, s.Query(userID))

	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.err = err
	} else {
		items := make([]models.Category, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.CategoryFromDocument(d))
		}
		s.items = items
	}
	fns = s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// Create 先远程写入，成功后追加到本地
func (s *CategoryStore) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if err := c.Validate(); err != nil {
		s.SetError(err)
		return models.Category{}, err
	}
	s.begin()

	fields := c.Fields()
	fields["createdAt"] = remote.ServerTimestamp
	fields["updatedAt"] = remote.ServerTimestamp

	id, err := s.remote.Create(ctx, remote.CollectionCategories, fields)
	if err != nil {
		s.fail(err)
		return models.Category{}, err
	}

	c.ID = id
	s.mu.Lock()
	s.items = append(s.items, c)
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return c, nil
}

// Update 只写给定字段，成功后合并到本地对应条目
func (s *CategoryStore) Update(ctx context.Context, id string, patch map[string]any) error {
	s.begin()

	fields := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["updatedAt"] = remote.ServerTimestamp

	if err := s.remote.Update(ctx, remote.CollectionCategories, id, fields); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i] = applyCategoryPatch(s.items[i], patch)
		break
	}
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return nil
}

// Delete 远程删除成功后把条目从本地过滤掉
// 引用该类别的消费记录保持原样（弱引用不级联）
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.remote.Delete(ctx, remote.CollectionCategories, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, c := range s.items {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.items = kept
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return nil
}

// SyncDocuments 同步桥落点
func (s *CategoryStore) SyncDocuments(docs []remote.Document) {
	var items []models.Category
	if docs != nil {
		items = make([]models.Category, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.CategoryFromDocument(d))
		}
	}

	s.mu.Lock()
	if len(s.items) == 0 && len(items) == 0 {
		s.mu.Unlock()
		return
	}
	if reflect.DeepEqual(s.items, items) {
		s.mu.Unlock()
		return
	}
	s.items = items
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

func applyCategoryPatch(c models.Category, patch map[string]any) models.Category {
	for k, v := range patch {
		switch k {
		case "name":
			if sv, ok := patchString(v); ok {
				c.Name = sv
			}
		case "sort":
			if iv, ok := patchInt(v); ok {
				c.Sort = iv
			}
		}
	}
	return c
}

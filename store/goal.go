package store

import (
	"context"
	"reflect"
	"time"

	"moneysync/models"
	"moneysync/remote"
)

// GoalStore 储蓄目标仓库
type GoalStore struct {
	state
	remote remote.Store
	items  []models.Goal
	now    func() time.Time
}

// NewGoalStore 创建储蓄目标仓库
func NewGoalStore(rs remote.Store) *GoalStore {
	return &GoalStore{remote: rs, now: time.Now}
}

// Query 本仓库的默认查询描述符：按用户过滤，创建时间倒序
func (s *GoalStore) Query(userID string) remote.Query {
	return remote.NewQuery(remote.CollectionGoals).
		Where("userId", remote.OpEqual, userID).
		OrderBy("createdAt", remote.Desc)
}

// Items 当前条目快照副本
func (s *GoalStore) Items() []models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Goal, len(s.items))
	copy(out, s.items)
	return out
}

// SetItems 整体替换条目，无副作用
func (s *GoalStore) SetItems(items []models.Goal) {
	s.mu.Lock()
	s.items = append([]models.Goal(nil), items...)
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// GetByID 纯本地查找，绝不触发远程调用
func (s *GoalStore) GetByID(id string) (models.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.items {
		if g.ID == id {
			return g, true
		}
	}
	return models.Goal{}, false
}

// Fetch 对远程存储发起范围查询，成功后整体替换条目
func (s *GoalStore) Fetch(ctx context.Context, userID string) {
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
		items := make([]models.Goal, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.GoalFromDocument(d))
		}
		s.items = items
	}
	fns = s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// Create 先远程写入（附带服务端时间戳），成功后追加到本地并返回带ID的实体
func (s *GoalStore) Create(ctx context.Context, g models.Goal) (models.Goal, error) {
	if err := g.Validate(); err != nil {
		s.SetError(err)
		return models.Goal{}, err
	}
	s.begin()

	fields := g.Fields()
	fields["createdAt"] = remote.ServerTimestamp
	fields["updatedAt"] = remote.ServerTimestamp

	id, err := s.remote.Create(ctx, remote.CollectionGoals, fields)
	if err != nil {
		s.fail(err)
		return models.Goal{}, err
	}

	g.ID = id
	g.CreatedAt = s.now()
	g.UpdatedAt = g.CreatedAt

	s.mu.Lock()
	s.items = append(s.items, g)
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return g, nil
}

// Update 只写给定字段加刷新的 updatedAt，成功后合并到本地对应条目
func (s *GoalStore) Update(ctx context.Context, id string, patch map[string]any) error {
	s.begin()

	fields := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["updatedAt"] = remote.ServerTimestamp

	if err := s.remote.Update(ctx, remote.CollectionGoals, id, fields); err != nil {
		s.fail(err)
		return err
	}

	now := s.now()
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		item := applyGoalPatch(s.items[i], patch)
		item.UpdatedAt = now
		s.items[i] = item
		break
	}
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return nil
}

// Delete 远程删除成功后把条目从本地过滤掉
func (s *GoalStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.remote.Delete(ctx, remote.CollectionGoals, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, g := range s.items {
		if g.ID != id {
			kept = append(kept, g)
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
func (s *GoalStore) SyncDocuments(docs []remote.Document) {
	var items []models.Goal
	if docs != nil {
		items = make([]models.Goal, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.GoalFromDocument(d))
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

func applyGoalPatch(g models.Goal, patch map[string]any) models.Goal {
	for k, v := range patch {
		switch k {
		case "name":
			if sv, ok := patchString(v); ok {
				g.Name = sv
			}
		case "targetAmount":
			if fv, ok := patchFloat(v); ok {
				g.TargetAmount = fv
			}
		case "currentAmount":
			if fv, ok := patchFloat(v); ok {
				g.CurrentAmount = fv
			}
		case "deadline":
			if tv, ok := patchTime(v); ok {
				g.Deadline = tv
			}
		case "category":
			if sv, ok := patchString(v); ok {
				g.Category = sv
			}
		}
	}
	return g
}

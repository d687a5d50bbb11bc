package store

import (
	"context"
	"reflect"
	"time"

	"moneysync/models"
	"moneysync/remote"
)

// ExpenseStore 消费记录仓库
// 进程内该实体唯一的响应式缓存：远程存储是数据权威，
// 这里保存的快照可能过期，过期窗口以下一次成功的 fetch 或变更为界。
type ExpenseStore struct {
	state
	remote remote.Store
	items  []models.Expense
	now    func() time.Time
}

// NewExpenseStore 创建消费记录仓库
func NewExpenseStore(rs remote.Store) *ExpenseStore {
	return &ExpenseStore{remote: rs, now: time.Now}
}

// Query 本仓库的默认查询描述符：按用户过滤，消费时间倒序
func (s *ExpenseStore) Query(userID string) remote.Query {
	return remote.NewQuery(remote.CollectionExpenses).
		Where("userId", remote.OpEqual, userID).
		OrderBy("date", remote.Desc)
}

// Items 当前条目快照副本
func (s *ExpenseStore) Items() []models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Expense, len(s.items))
	copy(out, s.items)
	return out
}

// SetItems 整体替换条目，无副作用
func (s *ExpenseStore) SetItems(items []models.Expense) {
	s.mu.Lock()
	s.items = append([]models.Expense(nil), items...)
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// GetByID 纯本地查找，绝不触发远程调用
func (s *ExpenseStore) GetByID(id string) (models.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.ID == id {
			return e, true
		}
	}
	return models.Expense{}, false
}

// Fetch 对远程存储发起范围查询，成功后整体替换条目
// 失败只设置错误标记，已有条目保持不变（last-known-good）。
// 并发 Fetch 由序号守卫保证 last-request-wins。
func (s *ExpenseStore) Fetch(ctx context.Context, userID string) {
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
		// 期间有更新的 fetch 发出，过期响应丢弃
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.err = err
	} else {
		items := make([]models.Expense, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.ExpenseFromDocument(d))
		}
		s.items = items
	}
	fns = s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// Create 先远程写入（附带服务端时间戳），成功后把带服务端ID的实体追加到本地
// 失败会设置错误标记并把错误返回给调用方，绝不静默吞掉
func (s *ExpenseStore) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := e.Validate(); err != nil {
		s.SetError(err)
		return models.Expense{}, err
	}
	s.begin()

	fields := e.Fields()
	fields["createdAt"] = remote.ServerTimestamp
	fields["updatedAt"] = remote.ServerTimestamp

	id, err := s.remote.Create(ctx, remote.CollectionExpenses, fields)
	if err != nil {
		s.fail(err)
		return models.Expense{}, err
	}

	e.ID = id
	// 本地先用客户端时间近似，下一次 fetch 以服务端时间为准
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt

	s.mu.Lock()
	s.items = append(s.items, e)
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return e, nil
}

// Update 只把给定字段加上刷新的 updatedAt 写到远程，成功后合并到本地对应条目
// 远程失败时本地状态保持不变，错误返回给调用方
func (s *ExpenseStore) Update(ctx context.Context, id string, patch map[string]any) error {
	s.begin()

	fields := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["updatedAt"] = remote.ServerTimestamp

	if err := s.remote.Update(ctx, remote.CollectionExpenses, id, fields); err != nil {
		s.fail(err)
		return err
	}

	now := s.now()
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		item := applyExpensePatch(s.items[i], patch)
		item.UpdatedAt = now // 客户端估计值，服务端时间在下一次 fetch 覆盖
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
func (s *ExpenseStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.remote.Delete(ctx, remote.CollectionExpenses, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, e := range s.items {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.items = kept
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
	return nil
}

// SyncDocuments 同步桥落点：解码后与现有条目深比较，内容相同不更新
func (s *ExpenseStore) SyncDocuments(docs []remote.Document) {
	var items []models.Expense
	if docs != nil {
		items = make([]models.Expense, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.ExpenseFromDocument(d))
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

func applyExpensePatch(e models.Expense, patch map[string]any) models.Expense {
	for k, v := range patch {
		switch k {
		case "description":
			if sv, ok := patchString(v); ok {
				e.Description = sv
			}
		case "amount":
			if fv, ok := patchFloat(v); ok {
				e.Amount = fv
			}
		case "categoryId":
			if sv, ok := patchString(v); ok {
				e.CategoryID = sv
			}
		case "date":
			if tv, ok := patchTime(v); ok {
				e.Date = tv
			}
		case "paymentMethod":
			if sv, ok := patchString(v); ok {
				e.PaymentMethod = sv
			}
		}
	}
	return e
}

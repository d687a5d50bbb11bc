package store

import (
	"context"
	"reflect"
	"time"

	"moneysync/models"
	"moneysync/remote"
)

// BalanceStore 余额流水仓库
// 余额本身不落库，始终由流水带符号求和派生
type BalanceStore struct {
	state
	remote remote.Store
	items  []models.BalanceTransaction
	now    func() time.Time
}

// NewBalanceStore 创建余额流水仓库
func NewBalanceStore(rs remote.Store) *BalanceStore {
	return &BalanceStore{remote: rs, now: time.Now}
}

// Query 本仓库的默认查询描述符：按用户过滤，交易时间倒序
func (s *BalanceStore) Query(userID string) remote.Query {
	return remote.NewQuery(remote.CollectionBalance).
		Where("userId", remote.OpEqual, userID).
		OrderBy("date", remote.Desc)
}

// Items 当前流水快照副本
func (s *BalanceStore) Items() []models.BalanceTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BalanceTransaction, len(s.items))
	copy(out, s.items)
	return out
}

// SetItems 整体替换流水，无副作用
func (s *BalanceStore) SetItems(items []models.BalanceTransaction) {
	s.mu.Lock()
	s.items = append([]models.BalanceTransaction(nil), items...)
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// GetByID 纯本地查找，绝不触发远程调用
func (s *BalanceStore) GetByID(id string) (models.BalanceTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, true
		}
	}
	return models.BalanceTransaction{}, false
}

// Fetch 对远程存储发起范围查询，成功后整体替换流水
func (s *BalanceStore) Fetch(ctx context.Context, userID string) {
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
		items := make([]models.BalanceTransaction, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.BalanceTransactionFromDocument(d))
		}
		s.items = items
	}
	fns = s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// Create 先远程写入流水，成功后追加到本地并重新拉取一次（对齐服务端时间戳）
func (s *BalanceStore) Create(ctx context.Context, t models.BalanceTransaction) (models.BalanceTransaction, error) {
	if err := t.Validate(); err != nil {
		s.SetError(err)
		return models.BalanceTransaction{}, err
	}
	s.begin()

	fields := t.Fields()
	fields["createdAt"] = remote.ServerTimestamp
	fields["updatedAt"] = remote.ServerTimestamp

	id, err := s.remote.Create(ctx, remote.CollectionBalance, fields)
	if err != nil {
		s.fail(err)
		return models.BalanceTransaction{}, err
	}

	t.ID = id
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	s.mu.Lock()
	s.items = append(s.items, t)
	s.loading = false
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)

	// 追加后重新拉取，让余额基于服务端权威数据
	s.Fetch(ctx, t.UserID)
	return t, nil
}

// Update 只写给定字段加刷新的 updatedAt，成功后合并到本地对应条目
func (s *BalanceStore) Update(ctx context.Context, id string, patch map[string]any) error {
	s.begin()

	fields := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["updatedAt"] = remote.ServerTimestamp

	if err := s.remote.Update(ctx, remote.CollectionBalance, id, fields); err != nil {
		s.fail(err)
		return err
	}

	now := s.now()
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		item := applyBalancePatch(s.items[i], patch)
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

// Delete 远程删除成功后把流水从本地过滤掉
func (s *BalanceStore) Delete(ctx context.Context, id string) error {
	s.begin()

	if err := s.remote.Delete(ctx, remote.CollectionBalance, id); err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, t := range s.items {
		if t.ID != id {
			kept = append(kept, t)
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
func (s *BalanceStore) SyncDocuments(docs []remote.Document) {
	var items []models.BalanceTransaction
	if docs != nil {
		items = make([]models.BalanceTransaction, 0, len(docs))
		for _, d := range docs {
			items = append(items, models.BalanceTransactionFromDocument(d))
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

// applyBalancePatch 把补丁字段套用到流水值上，未知键忽略
func applyBalancePatch(t models.BalanceTransaction, patch map[string]any) models.BalanceTransaction {
	for k, v := range patch {
		switch k {
		case "type":
			if sv, ok := patchString(v); ok {
				t.Type = sv
			}
		case "amount":
			if fv, ok := patchFloat(v); ok {
				t.Amount = fv
			}
		case "date":
			if tv, ok := patchTime(v); ok {
				t.Date = tv
			}
		}
	}
	return t
}

// itemsFor 指定用户的流水快照副本
func (s *BalanceStore) itemsFor(userID string) []models.BalanceTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BalanceTransaction
	for _, t := range s.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// TotalBalance 指定用户流水的带符号总余额
func (s *BalanceStore) TotalBalance(userID string) float64 {
	return models.TotalBalance(s.itemsFor(userID))
}

// MonthlyExpenses 指定用户在指定时间所在月份的支出总额（仅 withdrawal）
func (s *BalanceStore) MonthlyExpenses(userID string, now time.Time) float64 {
	var total float64
	for _, t := range s.itemsFor(userID) {
		if t.Type != models.TransactionWithdrawal {
			continue
		}
		if t.Date.Year() == now.Year() && t.Date.Month() == now.Month() {
			total += t.Amount
		}
	}
	return total
}

// MonthlySavings 当月储蓄：总余额减去当月支出
func (s *BalanceStore) MonthlySavings(userID string, now time.Time) float64 {
	return s.TotalBalance(userID) - s.MonthlyExpenses(userID, now)
}

// RemainingBudget 当月剩余预算
func (s *BalanceStore) RemainingBudget(userID string, now time.Time) float64 {
	return s.TotalBalance(userID) - s.MonthlyExpenses(userID, now)
}

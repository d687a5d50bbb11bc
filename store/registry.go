package store

import "moneysync/remote"

// Registry 实体仓库注册表
// 每种实体一个进程级仓库实例，在组合根构造后显式注入消费方，
// 不做环境全局查找，方便测试和多实例场景。
type Registry struct {
	// Remote 各仓库共享的远程存储，调用方在仓库之外组装查询器时用它
	Remote     remote.Store
	Expenses   *ExpenseStore
	Categories *CategoryStore
	Goals      *GoalStore
	Balance    *BalanceStore
}

// NewRegistry 基于同一个远程存储创建全部仓库
func NewRegistry(rs remote.Store) *Registry {
	return &Registry{
		Remote:     rs,
		Expenses:   NewExpenseStore(rs),
		Categories: NewCategoryStore(rs),
		Goals:      NewGoalStore(rs),
		Balance:    NewBalanceStore(rs),
	}
}

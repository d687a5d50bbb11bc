package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysync/database"
	"moneysync/models"
	"moneysync/remote"
)

func TestBalanceStoreTotals(t *testing.T) {
	st := NewBalanceStore(&stubRemote{})
	march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	st.SetItems([]models.BalanceTransaction{
		{ID: "t1", UserID: "u1", Type: models.TransactionDeposit, Amount: 1000, Date: march},
		{ID: "t2", UserID: "u1", Type: models.TransactionWithdrawal, Amount: 300, Date: march},
		{ID: "t3", UserID: "u1", Type: models.TransactionWithdrawal, Amount: 50, Date: march.AddDate(0, -1, 0)},
		// 其他用户的流水不计入
		{ID: "t4", UserID: "u2", Type: models.TransactionDeposit, Amount: 9999, Date: march},
	})

	assert.Equal(t, 650.0, st.TotalBalance("u1"))
	// 当月支出只计 withdrawal 且同年同月
	assert.Equal(t, 300.0, st.MonthlyExpenses("u1", march))
	assert.Equal(t, 350.0, st.MonthlySavings("u1", march))
	assert.Equal(t, 350.0, st.RemainingBudget("u1", march))
	assert.Equal(t, 9999.0, st.TotalBalance("u2"))
}

func TestBalanceStoreTotalsOrderIndependent(t *testing.T) {
	a := NewBalanceStore(&stubRemote{})
	b := NewBalanceStore(&stubRemote{})
	txs := []models.BalanceTransaction{
		{ID: "t1", UserID: "u1", Type: models.TransactionDeposit, Amount: 100},
		{ID: "t2", UserID: "u1", Type: models.TransactionWithdrawal, Amount: 40},
		{ID: "t3", UserID: "u1", Type: models.TransactionDeposit, Amount: 7},
	}
	a.SetItems(txs)
	b.SetItems([]models.BalanceTransaction{txs[2], txs[0], txs[1]})

	assert.Equal(t, a.TotalBalance("u1"), b.TotalBalance("u1"))
	assert.Equal(t, 67.0, a.TotalBalance("u1"))
}

func TestBalanceStoreCreateRefetches(t *testing.T) {
	mem := database.NewMemoryStore()
	server := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	mem.SetClock(fixedClock(server))
	st := NewBalanceStore(mem)
	st.now = fixedClock(server)
	ctx := context.Background()

	created, err := st.Create(ctx, models.BalanceTransaction{
		UserID: "u1", Type: models.TransactionDeposit, Amount: 500, Date: server,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// 创建内部会追加并重新拉取，条目以服务端数据为准
	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, server, items[0].CreatedAt)
	assert.Equal(t, 500.0, st.TotalBalance("u1"))
	assert.False(t, st.Loading())
	assert.NoError(t, st.Err())
}

func TestBalanceStoreCreateValidation(t *testing.T) {
	rs := &stubRemote{}
	st := NewBalanceStore(rs)

	_, err := st.Create(context.Background(), models.BalanceTransaction{
		UserID: "u1", Type: "transfer", Amount: 10,
	})
	require.Error(t, err)
	assert.True(t, remote.IsValidation(err))
	assert.Zero(t, rs.writeCount())
}

func TestBalanceStoreDelete(t *testing.T) {
	mem := database.NewMemoryStore()
	st := NewBalanceStore(mem)
	ctx := context.Background()

	tx, err := st.Create(ctx, models.BalanceTransaction{
		UserID: "u1", Type: models.TransactionDeposit, Amount: 200, Date: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, tx.ID))
	assert.Empty(t, st.Items())
	assert.Equal(t, 0.0, st.TotalBalance("u1"))
}

func TestBalanceStoreUpdateMergesPatch(t *testing.T) {
	var sentFields map[string]any
	rs := &stubRemote{updateFn: func(collection, id string, fields map[string]any) error {
		sentFields = fields
		return nil
	}}
	client := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	st := NewBalanceStore(rs)
	st.now = fixedClock(client)
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st.SetItems([]models.BalanceTransaction{
		{ID: "t1", UserID: "u1", Type: models.TransactionDeposit, Amount: 100, Date: march},
		{ID: "t2", UserID: "u1", Type: models.TransactionWithdrawal, Amount: 40, Date: march},
	})

	require.NoError(t, st.Update(context.Background(), "t1", map[string]any{
		"type":   models.TransactionWithdrawal,
		"amount": 60.0,
	}))
	assert.Equal(t, remote.ServerTimestamp, sentFields["updatedAt"])

	got, ok := st.GetByID("t1")
	require.True(t, ok)
	assert.Equal(t, models.TransactionWithdrawal, got.Type)
	assert.Equal(t, 60.0, got.Amount)
	assert.Equal(t, march, got.Date) // 未出现在补丁里的字段不动
	assert.Equal(t, client, got.UpdatedAt)

	other, _ := st.GetByID("t2")
	assert.Equal(t, 40.0, other.Amount)

	// 派生量跟着流水变化
	assert.Equal(t, -100.0, st.TotalBalance("u1"))
	assert.Equal(t, 100.0, st.MonthlyExpenses("u1", march))
}

func TestRegistrySharesRemote(t *testing.T) {
	mem := database.NewMemoryStore()
	reg := NewRegistry(mem)

	require.NotNil(t, reg.Expenses)
	require.NotNil(t, reg.Categories)
	require.NotNil(t, reg.Goals)
	require.NotNil(t, reg.Balance)

	// 四个仓库落在同一个远程存储上
	ctx := context.Background()
	_, err := reg.Categories.Create(ctx, models.Category{UserID: "u1", Name: "餐饮"})
	require.NoError(t, err)
	other := NewCategoryStore(mem)
	other.Fetch(ctx, "u1")
	assert.Len(t, other.Items(), 1)
}

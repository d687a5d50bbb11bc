package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysync/remote"
)

func TestMemoryStoreCreateAndReadAll(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id1, err := s.Create(ctx, remote.CollectionExpenses, map[string]any{
		"userId": "u1", "amount": 10.0, "date": time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.Create(ctx, remote.CollectionExpenses, map[string]any{
		"userId": "u1", "amount": 20.0, "date": time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 其他用户的数据不可见
	_, err = s.Create(ctx, remote.CollectionExpenses, map[string]any{
		"userId": "u2", "amount": 99.0, "date": time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionExpenses).
		Where("userId", remote.OpEqual, "u1").
		OrderBy("date", remote.Desc))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// 按 date 降序
	assert.Equal(t, id2, docs[0].ID)
	assert.Equal(t, id1, docs[1].ID)
}

func TestMemoryStoreServerTimestamp(t *testing.T) {
	s := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })
	ctx := context.Background()

	id, err := s.Create(ctx, remote.CollectionGoals, map[string]any{
		"userId":    "u1",
		"createdAt": remote.ServerTimestamp,
		"updatedAt": remote.ServerTimestamp,
	})
	require.NoError(t, err)

	docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionGoals))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
	assert.True(t, docs[0].Time("createdAt").Equal(fixed))
	assert.True(t, docs[0].Time("updatedAt").Equal(fixed))
}

func TestMemoryStoreUpdateMerge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, remote.CollectionGoals, map[string]any{
		"userId": "u1", "name": "Car", "currentAmount": 2000.0,
	})
	require.NoError(t, err)

	// 只更新给定字段，其余保持不变
	require.NoError(t, s.Update(ctx, remote.CollectionGoals, id, map[string]any{"currentAmount": 3000.0}))

	docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionGoals))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Car", docs[0].String("name"))
	assert.Equal(t, 3000.0, docs[0].Float("currentAmount"))

	// 不存在的文档
	err = s.Update(ctx, remote.CollectionGoals, "missing", map[string]any{"name": "x"})
	assert.True(t, remote.IsNotFound(err))
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, remote.CollectionCategories, map[string]any{"userId": "u1", "name": "food"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, remote.CollectionCategories, id))

	docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionCategories))
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.True(t, remote.IsNotFound(s.Delete(ctx, remote.CollectionCategories, id)))
}

func TestMemoryStoreFilterOperators(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, amount := range []float64{5, 10, 15} {
		_, err := s.Create(ctx, remote.CollectionBalance, map[string]any{"userId": "u1", "amount": amount})
		require.NoError(t, err)
	}

	cases := []struct {
		op   remote.Operator
		want int
	}{
		{remote.OpGreater, 1},
		{remote.OpGreaterEq, 2},
		{remote.OpLess, 1},
		{remote.OpLessEq, 2},
		{remote.OpNotEqual, 2},
		{remote.OpEqual, 1},
	}
	for _, tc := range cases {
		docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionBalance).Where("amount", tc.op, 10.0))
		require.NoError(t, err)
		assert.Len(t, docs, tc.want, "op %s", tc.op)
	}
}

func TestMemoryStoreReadAllReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, remote.CollectionCategories, map[string]any{"userId": "u1", "name": "food"})
	require.NoError(t, err)

	docs, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionCategories))
	require.NoError(t, err)
	docs[0].Fields["name"] = "hacked"

	again, err := s.ReadAll(ctx, remote.NewQuery(remote.CollectionCategories))
	require.NoError(t, err)
	assert.Equal(t, "food", again[0].String("name"))
}

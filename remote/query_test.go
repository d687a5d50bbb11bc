package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryEqual(t *testing.T) {
	q1 := NewQuery(CollectionExpenses).
		Where("userId", OpEqual, "u1").
		OrderBy("date", Desc)

	// 从相同输入重新推导出的查询必须相等
	q2 := NewQuery(CollectionExpenses).
		Where("userId", OpEqual, "u1").
		OrderBy("date", Desc)
	assert.True(t, q1.Equal(q2))

	// 任何一部分不同都算变化
	assert.False(t, q1.Equal(NewQuery(CollectionGoals).Where("userId", OpEqual, "u1").OrderBy("date", Desc)))
	assert.False(t, q1.Equal(NewQuery(CollectionExpenses).Where("userId", OpEqual, "u2").OrderBy("date", Desc)))
	assert.False(t, q1.Equal(NewQuery(CollectionExpenses).Where("userId", OpEqual, "u1").OrderBy("date", Asc)))
	assert.False(t, q1.Equal(NewQuery(CollectionExpenses).Where("userId", OpEqual, "u1")))
}

func TestQueryImmutable(t *testing.T) {
	base := NewQuery(CollectionExpenses).Where("userId", OpEqual, "u1")

	// Where/OrderBy 返回新值，不改动原查询
	derived := base.Where("amount", OpGreater, 10.0).OrderBy("date", Desc)
	assert.Len(t, base.Filters, 1)
	assert.Empty(t, base.Orders)
	assert.Len(t, derived.Filters, 2)
	assert.Len(t, derived.Orders, 1)
}

func TestByUser(t *testing.T) {
	f := ByUser("u42")
	assert.Equal(t, "userId", f.Field)
	assert.Equal(t, OpEqual, f.Op)
	assert.Equal(t, "u42", f.Value)
}

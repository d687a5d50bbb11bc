package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	te := TransportError("expenses.fetch", errors.New("connection refused"))
	assert.True(t, IsTransport(te))
	assert.False(t, IsNotFound(te))
	assert.Contains(t, te.Error(), "transport")
	assert.Contains(t, te.Error(), "connection refused")

	ve := ValidationError("goals.create", "userId 不能为空")
	assert.True(t, IsValidation(ve))

	ne := NotFoundError("expenses.update", "abc")
	assert.True(t, IsNotFound(ne))
	assert.Contains(t, ne.Error(), "abc")
}

func TestKindOfWrapped(t *testing.T) {
	// 经过 %w 包装后仍能识别分类
	inner := NotFoundError("balance.delete", "tx1")
	wrapped := fmt.Errorf("删除失败: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))

	// 未分类的错误按传输错误处理
	assert.Equal(t, KindTransport, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(0), KindOf(nil))
}

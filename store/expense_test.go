package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysync/database"
	"moneysync/models"
	"moneysync/remote"
)

// stubRemote 可编程的远程存储桩，按需挂接各操作
type stubRemote struct {
	mu       sync.Mutex
	reads    int
	writes   int
	readAll  func(call int, q remote.Query) ([]remote.Document, error)
	createFn func(collection string, fields map[string]any) (string, error)
	updateFn func(collection, id string, fields map[string]any) error
	deleteFn func(collection, id string) error
}

func (s *stubRemote) ReadAll(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	s.mu.Lock()
	s.reads++
	call := s.reads
	fn := s.readAll
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, q)
}

func (s *stubRemote) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	s.writes++
	fn := s.createFn
	s.mu.Unlock()
	if fn == nil {
		return "stub-id", nil
	}
	return fn(collection, fields)
}

func (s *stubRemote) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	s.writes++
	fn := s.updateFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(collection, id, fields)
}

func (s *stubRemote) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	s.writes++
	fn := s.deleteFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(collection, id)
}

func (s *stubRemote) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestExpenseStoreCreateFetchRoundTrip(t *testing.T) {
	mem := database.NewMemoryStore()
	server := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mem.SetClock(fixedClock(server))
	st := NewExpenseStore(mem)
	st.now = fixedClock(server)
	ctx := context.Background()

	created, err := st.Create(ctx, models.Expense{
		UserID:        "u1",
		Description:   "groceries",
		Amount:        88.5,
		CategoryID:    "c1",
		Date:          server,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, st.Loading())
	assert.NoError(t, st.Err())

	// 创建后条目立即可见，无需等 fetch
	got, ok := st.GetByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, "groceries", got.Description)

	// 重新拉取后以服务端数据为准
	st.Fetch(ctx, "u1")
	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, 88.5, items[0].Amount)
	assert.Equal(t, server, items[0].CreatedAt)
}

func TestExpenseStoreCreateValidationSkipsRemote(t *testing.T) {
	rs := &stubRemote{}
	st := NewExpenseStore(rs)

	_, err := st.Create(context.Background(), models.Expense{
		UserID: "u1",
		Amount: 0, // 非法金额
		Date:   time.Now(),
	})
	require.Error(t, err)
	assert.True(t, remote.IsValidation(err))
	// 校验失败不得触达远程
	assert.Zero(t, rs.writeCount())
	// 错误标记落在仓库上
	assert.ErrorIs(t, st.Err(), err)
	assert.False(t, st.Loading())
}

func TestExpenseStoreUpdateEmptyPatch(t *testing.T) {
	var sentFields map[string]any
	rs := &stubRemote{updateFn: func(collection, id string, fields map[string]any) error {
		sentFields = fields
		return nil
	}}
	client := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := NewExpenseStore(rs)
	st.now = fixedClock(client)
	st.SetItems([]models.Expense{{ID: "e1", UserID: "u1", Description: "old", Amount: 10}})

	// 空补丁也要刷新 updatedAt
	require.NoError(t, st.Update(context.Background(), "e1", map[string]any{}))
	require.Len(t, sentFields, 1)
	assert.Equal(t, remote.ServerTimestamp, sentFields["updatedAt"])

	got, ok := st.GetByID("e1")
	require.True(t, ok)
	assert.Equal(t, "old", got.Description)
	assert.Equal(t, client, got.UpdatedAt)
}

func TestExpenseStoreUpdateMergesPatch(t *testing.T) {
	rs := &stubRemote{}
	st := NewExpenseStore(rs)
	st.SetItems([]models.Expense{
		{ID: "e1", Description: "old", Amount: 10, CategoryID: "c1"},
		{ID: "e2", Description: "keep", Amount: 20},
	})

	require.NoError(t, st.Update(context.Background(), "e1", map[string]any{
		"description": "new",
		"amount":      15.5,
	}))

	got, _ := st.GetByID("e1")
	assert.Equal(t, "new", got.Description)
	assert.Equal(t, 15.5, got.Amount)
	assert.Equal(t, "c1", got.CategoryID) // 未出现在补丁里的字段不动

	other, _ := st.GetByID("e2")
	assert.Equal(t, "keep", other.Description)
}

func TestExpenseStoreDelete(t *testing.T) {
	mem := database.NewMemoryStore()
	st := NewExpenseStore(mem)
	ctx := context.Background()

	a, err := st.Create(ctx, models.Expense{UserID: "u1", Amount: 1, Date: time.Now()})
	require.NoError(t, err)
	b, err := st.Create(ctx, models.Expense{UserID: "u1", Amount: 2, Date: time.Now()})
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, a.ID))
	items := st.Items()
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	// 远程也确实删掉了
	st.Fetch(ctx, "u1")
	require.Len(t, st.Items(), 1)
}

func TestExpenseStoreFetchErrorKeepsItems(t *testing.T) {
	boom := remote.TransportError("expenses.read", errors.New("timeout"))
	rs := &stubRemote{readAll: func(call int, q remote.Query) ([]remote.Document, error) {
		return nil, boom
	}}
	st := NewExpenseStore(rs)
	st.SetItems([]models.Expense{{ID: "e1", Amount: 10}})

	st.Fetch(context.Background(), "u1")

	assert.False(t, st.Loading())
	assert.ErrorIs(t, st.Err(), boom)
	// 失败保留 last-known-good
	require.Len(t, st.Items(), 1)
	assert.Equal(t, "e1", st.Items()[0].ID)
}

func TestExpenseStoreStaleFetchDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})
	rs := &stubRemote{readAll: func(call int, q remote.Query) ([]remote.Document, error) {
		if call == 1 {
			close(firstStarted)
			<-releaseFirst
			return []remote.Document{{ID: "stale", Fields: map[string]any{"userId": "u1"}}}, nil
		}
		return []remote.Document{{ID: "fresh", Fields: map[string]any{"userId": "u1"}}}, nil
	}}
	st := NewExpenseStore(rs)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		st.Fetch(ctx, "u1")
	}()
	<-firstStarted

	// 第二个请求先完成
	st.Fetch(ctx, "u1")
	require.Len(t, st.Items(), 1)
	assert.Equal(t, "fresh", st.Items()[0].ID)

	// 放行第一个：迟到响应不得覆盖
	close(releaseFirst)
	wg.Wait()
	require.Len(t, st.Items(), 1)
	assert.Equal(t, "fresh", st.Items()[0].ID)
}

func TestExpenseStoreItemsReturnsCopy(t *testing.T) {
	st := NewExpenseStore(&stubRemote{})
	st.SetItems([]models.Expense{{ID: "e1", Amount: 10}})

	items := st.Items()
	items[0].Amount = 999

	got, _ := st.GetByID("e1")
	assert.Equal(t, 10.0, got.Amount)
}

func TestStateSetFlagsSuppressNoop(t *testing.T) {
	st := NewExpenseStore(&stubRemote{})
	var notified int
	cancel := st.Subscribe(func() { notified++ })
	defer cancel()

	st.SetLoading(false) // 值未变，不通知
	st.SetError(nil)
	assert.Zero(t, notified)

	st.SetLoading(true)
	st.SetLoading(true)
	assert.Equal(t, 1, notified)

	boom := errors.New("x")
	st.SetError(boom)
	st.SetError(boom)
	assert.Equal(t, 2, notified)
}

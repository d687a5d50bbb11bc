package collection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysync/remote"
)

// fakeRemote 可编程的远程存储桩
type fakeRemote struct {
	mu      sync.Mutex
	calls   int
	readAll func(call int, q remote.Query) ([]remote.Document, error)
}

func (f *fakeRemote) ReadAll(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.readAll
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, q)
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeRemote) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return errors.New("not implemented")
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	return errors.New("not implemented")
}

func userQuery(userID string) remote.Query {
	return remote.NewQuery(remote.CollectionExpenses).
		Where("userId", remote.OpEqual, userID).
		OrderBy("date", remote.Desc)
}

func TestFetcherReloadSkipsEqualQuery(t *testing.T) {
	rs := &fakeRemote{}
	f := NewFetcher(rs)
	ctx := context.Background()

	f.Reload(ctx, userQuery("u1"), "u1")
	assert.Equal(t, 1, rs.callCount())

	// 结构化相等的描述符替换旧描述符时不得重新执行
	f.Reload(ctx, userQuery("u1"), "u1")
	assert.Equal(t, 1, rs.callCount())

	// 描述符变化触发重新执行
	f.Reload(ctx, userQuery("u2"), "u2")
	assert.Equal(t, 2, rs.callCount())

	// 描述符相同但依赖值变化也触发
	f.Reload(ctx, userQuery("u2"), "u2", 42)
	assert.Equal(t, 3, rs.callCount())
}

func TestFetcherRefreshForces(t *testing.T) {
	rs := &fakeRemote{}
	f := NewFetcher(rs)
	ctx := context.Background()

	// 尚无描述符时 Refresh 是空操作
	f.Refresh(ctx)
	assert.Zero(t, rs.callCount())

	f.Reload(ctx, userQuery("u1"))
	f.Refresh(ctx)
	assert.Equal(t, 2, rs.callCount())
}

func TestFetcherSuccess(t *testing.T) {
	doc := remote.Document{ID: "e1", Fields: map[string]any{"userId": "u1", "amount": 5.0}}
	rs := &fakeRemote{readAll: func(call int, q remote.Query) ([]remote.Document, error) {
		return []remote.Document{doc}, nil
	}}
	f := NewFetcher(rs)

	f.Reload(context.Background(), userQuery("u1"))

	snap := f.Snapshot()
	assert.False(t, snap.Loading)
	assert.True(t, snap.Settled)
	assert.NoError(t, snap.Err)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "e1", snap.Docs[0].ID)
}

func TestFetcherErrorKeepsLastKnownGood(t *testing.T) {
	boom := remote.TransportError("expenses.read", errors.New("connection refused"))
	rs := &fakeRemote{readAll: func(call int, q remote.Query) ([]remote.Document, error) {
		if call == 1 {
			return []remote.Document{{ID: "e1", Fields: map[string]any{"amount": 5.0}}}, nil
		}
		return nil, boom
	}}
	f := NewFetcher(rs)
	ctx := context.Background()

	f.Reload(ctx, userQuery("u1"))
	require.Len(t, f.Snapshot().Docs, 1)

	// 第二次执行失败：错误可见，数据保留上一次成功的结果
	f.Refresh(ctx)
	snap := f.Snapshot()
	assert.False(t, snap.Loading)
	assert.ErrorIs(t, snap.Err, boom)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "e1", snap.Docs[0].ID)
}

func TestFetcherStaleResponseDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})

	rs := &fakeRemote{readAll: func(call int, q remote.Query) ([]remote.Document, error) {
		if call == 1 {
			close(firstStarted)
			<-releaseFirst
			return []remote.Document{{ID: "stale", Fields: map[string]any{}}}, nil
		}
		return []remote.Document{{ID: "fresh", Fields: map[string]any{}}}, nil
	}}
	f := NewFetcher(rs)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.Reload(ctx, userQuery("u1"))
	}()
	<-firstStarted

	// 第二个请求先完成
	f.Refresh(ctx)
	require.Len(t, f.Snapshot().Docs, 1)
	assert.Equal(t, "fresh", f.Snapshot().Docs[0].ID)

	// 放行第一个请求：迟到的响应不得覆盖更新的结果
	close(releaseFirst)
	wg.Wait()
	require.Len(t, f.Snapshot().Docs, 1)
	assert.Equal(t, "fresh", f.Snapshot().Docs[0].ID)
}

func TestFetcherSubscribe(t *testing.T) {
	rs := &fakeRemote{}
	f := NewFetcher(rs)

	var snaps []Snapshot
	cancel := f.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	f.Reload(context.Background(), userQuery("u1"))
	// 一次执行产生 loading=true 和结果两次通知
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Loading)
	assert.False(t, snaps[1].Loading)

	cancel()
	f.Refresh(context.Background())
	assert.Len(t, snaps, 2)
}

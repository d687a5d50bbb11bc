package collection

import (
	"context"
	"reflect"
	"sync"

	"moneysync/remote"
)

// Snapshot 查询器某一时刻的对外状态
type Snapshot struct {
	// Docs 为 nil 表示还没有任何一次成功结果；失败不清空上一次的数据
	Docs    []remote.Document
	Loading bool
	Err     error
	// Settled 首次执行结束后为 true，用于区分"空结果"和"尚未加载"
	Settled bool
}

// Listener 状态变化回调
type Listener func(Snapshot)

// Fetcher 集合查询器
// 针对一个查询描述符执行远程读取，维护 loading/error 状态，
// 只有描述符（结构化相等）或依赖值变化时才重新执行。
// 远程失败不会穿透边界，全部收敛到 Err。
//
// 并发 fetch 用单调递增的请求序号守卫：只有最近发出的那个请求的
// 响应才允许写入数据，慢的旧响应直接丢弃（last-request-wins）。
type Fetcher struct {
	store remote.Store

	mu        sync.Mutex
	query     remote.Query
	deps      []any
	hasQuery  bool
	issued    uint64
	docs      []remote.Document
	hasDocs   bool
	loading   bool
	settled   bool
	err       error
	listeners map[int]Listener
	nextID    int
}

// NewFetcher 创建集合查询器
func NewFetcher(store remote.Store) *Fetcher {
	return &Fetcher{
		store:     store,
		listeners: make(map[int]Listener),
	}
}

// Snapshot 返回当前状态快照
func (f *Fetcher) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Fetcher) snapshotLocked() Snapshot {
	s := Snapshot{Loading: f.loading, Err: f.err, Settled: f.settled}
	if f.hasDocs {
		s.Docs = make([]remote.Document, len(f.docs))
		copy(s.Docs, f.docs)
	}
	return s
}

// Subscribe 注册状态监听，返回取消函数
func (f *Fetcher) Subscribe(l Listener) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Reload 设置查询描述符并按需执行
// 描述符结构化相等且依赖值未变时不重新执行；首次调用总是执行。
func (f *Fetcher) Reload(ctx context.Context, q remote.Query, deps ...any) {
	f.mu.Lock()
	if f.hasQuery && f.query.Equal(q) && reflect.DeepEqual(f.deps, deps) {
		f.mu.Unlock()
		return
	}
	f.query = q
	f.deps = deps
	f.hasQuery = true
	f.mu.Unlock()

	f.execute(ctx)
}

// Refresh 用当前描述符强制重新执行
func (f *Fetcher) Refresh(ctx context.Context) {
	f.mu.Lock()
	if !f.hasQuery {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.execute(ctx)
}

func (f *Fetcher) execute(ctx context.Context) {
	f.mu.Lock()
	f.issued++
	seq := f.issued
	q := f.query
	f.loading = true
	f.err = nil
	fns, snap := f.broadcastLocked()
	f.mu.Unlock()
	notify(fns, snap)

	// 唯一的挂起点：远程读取在锁外进行
	docs, err := f.store.ReadAll(ctx, q)

	f.mu.Lock()
	if seq != f.issued {
		// 过期响应：期间有更新的请求发出，不允许覆盖
		f.mu.Unlock()
		return
	}
	f.loading = false
	f.settled = true
	if err != nil {
		// 保留上一次成功的数据（last-known-good）
		f.err = err
	} else {
		if docs == nil {
			docs = []remote.Document{}
		}
		f.docs = docs
		f.hasDocs = true
		f.err = nil
	}
	fns, snap = f.broadcastLocked()
	f.mu.Unlock()
	notify(fns, snap)
}

func (f *Fetcher) broadcastLocked() ([]Listener, Snapshot) {
	fns := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		fns = append(fns, l)
	}
	return fns, f.snapshotLocked()
}

func notify(fns []Listener, s Snapshot) {
	for _, fn := range fns {
		fn(s)
	}
}

package collection

import "moneysync/remote"

// Target 同步桥的落点：一个实体仓库暴露给桥的最小接口
type Target interface {
	SetLoading(loading bool)
	// SetError 传入 nil 表示清除错误标记
	SetError(err error)
	// SyncDocuments 解码文档并与现有条目深比较，内容相同时不得触发更新；
	// 传入 nil 表示清空条目
	SyncDocuments(docs []remote.Document)
}

// Bridge 同步桥
// 订阅一个查询器的输出并调和进实体仓库：
//   - loading 无条件透传
//   - 有数据时交给仓库做深比较，内容没变就不写，避免重复渲染
//   - 加载已结束、无错误且从未有过数据时视为空快照（首轮加载中不清空）
//   - 错误独立透传，nil 即清除
type Bridge struct {
	target Target
	cancel func()
}

// NewBridge 建桥并立即按查询器当前状态对齐一次
func NewBridge(f *Fetcher, target Target) *Bridge {
	b := &Bridge{target: target}
	b.cancel = f.Subscribe(b.apply)
	b.apply(f.Snapshot())
	return b
}

func (b *Bridge) apply(s Snapshot) {
	b.target.SetLoading(s.Loading)
	b.target.SetError(s.Err)

	if s.Docs != nil {
		b.target.SyncDocuments(s.Docs)
		return
	}
	if s.Settled && !s.Loading && s.Err == nil {
		b.target.SyncDocuments(nil)
	}
}

// Close 拆桥：复位仓库的 loading/error，条目保留（缓存数据继续可用）
func (b *Bridge) Close() {
	b.cancel()
	b.target.SetLoading(false)
	b.target.SetError(nil)
}

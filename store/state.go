package store

import (
	"sync"
	"time"
)

// state 四个实体仓库共享的状态骨架：
// loading/error 标记、订阅者管理、并发 fetch 的序号守卫。
// 仓库是进程级共享对象，方法内用互斥锁保护，远程调用一律在锁外进行。
type state struct {
	mu        sync.Mutex
	loading   bool
	err       error
	fetchSeq  uint64
	listeners map[int]func()
	nextID    int
}

// Subscribe 注册变更监听，返回取消函数
func (s *state) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifyLocked 收集监听器，调用方解锁后再执行
func (s *state) notifyLocked() []func() {
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// Loading 当前加载标记
func (s *state) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err 当前错误标记，被动读取，绝不抛出
func (s *state) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetLoading 直接设置加载标记，无副作用；值未变时不通知
func (s *state) SetLoading(v bool) {
	s.mu.Lock()
	if s.loading == v {
		s.mu.Unlock()
		return
	}
	s.loading = v
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// SetError 直接设置错误标记，nil 表示清除；值未变时不通知
func (s *state) SetError(err error) {
	s.mu.Lock()
	if s.err == err {
		s.mu.Unlock()
		return
	}
	s.err = err
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// begin 变更操作开始：loading=true，清错误
func (s *state) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// fail 变更操作失败：记录错误标记，本地数据保持不变
func (s *state) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.err = err
	fns := s.notifyLocked()
	s.mu.Unlock()
	run(fns)
}

// 补丁字段的宽松取值辅助，补丁以文档字段名为键

func patchString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func patchFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func patchInt(v any) (int, bool) {
	f, ok := patchFloat(v)
	return int(f), ok
}

func patchTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

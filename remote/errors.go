package remote

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind int

const (
	// KindTransport 网络或远程存储不可用
	KindTransport Kind = iota + 1
	// KindValidation 调用方提供的实体未通过本地前置校验，未发起任何远程调用
	KindValidation
	// KindNotFound 操作目标在远程不存在
	KindNotFound
)

// String 分类的可读名称
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error 统一的带分类错误类型，所有存储层错误都收敛到这里
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TransportError 包装一个网络/远程失败
func TransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// ValidationError 本地校验失败，调用前就会返回
func ValidationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// NotFoundError 目标文档不存在
func NotFoundError(op, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("document %q not found", id)}
}

// KindOf 取出错误的分类，非 *Error 一律视为传输错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err != nil {
		return KindTransport
	}
	return 0
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsTransport 判断是否为传输错误
func IsTransport(err error) bool {
	return KindOf(err) == KindTransport
}

// Package apperr 定义工作流核心跨边界返回的结构化错误。
// 内部辅助函数的失败在越过 service 边界前必须包装成这里的某一类。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindPrecondition      Kind = "precondition_failed"
	KindAuthorization     Kind = "authorization"
	KindNotFound          Kind = "not_found"
	KindUpstream          Kind = "upstream_unavailable"
)

// Error 结构化错误：类别 + 消息 + 出错的字段/实体
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Kind, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 输入校验失败
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// Validationf 输入校验失败（格式化消息）
func Validationf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Field: field}
}

// InvalidTransition 当前状态不允许该操作
func InvalidTransition(entity, current, action string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("当前状态 %s 不允许执行 %s", current, action),
		Entity:  entity,
	}
}

// Precondition 状态正确但前置条件未满足
func Precondition(entity, message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message, Entity: entity}
}

// Authorization 操作者缺少所需角色
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound 实体不存在
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s不存在", entity), Entity: entity}
}

// Upstream 外部依赖（数据库/目录/存储）失败。唯一允许自动重试的类别，
// 且仅限幂等读；变更操作从不自动重试。
func Upstream(entity string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: "上游服务不可用", Entity: entity, Err: err}
}

// KindOf 取错误类别；非结构化错误按 upstream 处理
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// IsKind 判断错误是否属于某一类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

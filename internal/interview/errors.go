package interview

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("interview not found")
	ErrUnauthorized       = errors.New("caller may not act on this interview")
	ErrInvalidState       = errors.New("transition not allowed from current state")
	ErrInvalidStatus      = errors.New("unrecognised interview status")
	ErrExhaustedQuestions = errors.New("no question at this index")
	ErrScoreDiscarded     = errors.New("answer score discarded: interview moved on while scoring")

	errVersionConflict = errors.New("interview changed concurrently")
)

// ProviderError 表示 AI 服务失败或返回了无法解析的内容。
// 它不会中断操作，只会附加在结果上。
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("ai provider: %s: %v", e.Op, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// PartialResultError 表示面试已完成，但整体评价缺失或不完整。
type PartialResultError struct {
	Reason string
	Err    error
}

func (e *PartialResultError) Error() string {
	if e.Err == nil {
		return "partial result: " + e.Reason
	}
	return fmt.Sprintf("partial result: %s: %v", e.Reason, e.Err)
}

func (e *PartialResultError) Unwrap() error { return e.Err }

// StoreError 表示数据库操作失败，对当前操作是致命的。
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

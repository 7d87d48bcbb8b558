package interview

import (
	"strings"

	"hireLoop/internal/database"
)

// Status 是存储层状态的别名，包外调用方无需引入 database。
type Status = database.InterviewStatus

const (
	StatusPending     = database.InterviewPending
	StatusScheduled   = database.InterviewScheduled
	StatusInProgress  = database.InterviewInProgress
	StatusCompleted   = database.InterviewCompleted
	StatusCancelled   = database.InterviewCancelled
	StatusShortlisted = database.InterviewShortlisted
	StatusRejected    = database.InterviewRejected
)

// AllStatuses 按生命周期顺序列出七个合法状态。
var AllStatuses = []Status{
	StatusPending,
	StatusScheduled,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusShortlisted,
	StatusRejected,
}

// ParseStatus 只接受完全一致的字面值。
func ParseStatus(raw string) (Status, error) {
	for _, s := range AllStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Valid 判断 s 是否为七个合法状态之一。
func Valid(s Status) bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// IsTerminal 判断 s 是否为正常流程无法离开的终态。
func IsTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusShortlisted, StatusRejected:
		return true
	default:
		return false
	}
}

// startable: pending 总是可以开始，scheduled 仅限非公开面试。
func startable(iv *database.Interview) bool {
	switch iv.Status {
	case StatusPending:
		return true
	case StatusScheduled:
		return !iv.IsPublic
	default:
		return false
	}
}

func cancellable(s Status) bool {
	return s == StatusPending || s == StatusScheduled
}

func statusNames() string {
	names := make([]string, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

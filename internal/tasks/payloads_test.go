package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportGenerateTask(t *testing.T) {
	task, err := NewReportGenerateTask(42, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, TypeReportGenerate, task.Type())

	var p ReportGeneratePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, uint(42), p.InterviewID)
	assert.Equal(t, "corr-1", p.CorrelationID)
}

func TestNewCloseExpiredTask(t *testing.T) {
	task := NewCloseExpiredTask()
	assert.Equal(t, TypePositionsCloseExpire, task.Type())
	assert.Empty(t, task.Payload())
}

func TestNotifyChannel(t *testing.T) {
	assert.Equal(t, "user_notify:12", NotifyChannel(12))
}

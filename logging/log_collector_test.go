package logging

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(msg string) LogEntry {
	return LogEntry{Time: time.Now(), Level: "INFO", Message: msg, Attributes: map[string]interface{}{}}
}

func TestNewLogCollector(t *testing.T) {
	collector := NewLogCollector(0)
	require.NotNil(t, collector)
	assert.Equal(t, defaultCaptureSize, collector.size)
	assert.NotNil(t, collector.logs)
}

func TestLogCollector_AddLog(t *testing.T) {
	collector := NewLogCollector(5)
	e := entry("goto started")
	e.Attributes["target"] = 12.0

	collector.AddLog("arm", e)

	logs := collector.GetLogs("arm")
	require.Len(t, logs, 1)
	assert.Equal(t, "goto started", logs[0].Message)
	assert.Equal(t, 12.0, logs[0].Attributes["target"])
	assert.Nil(t, collector.GetLogs("grabber"))
}

func TestLogCollector_DropsOldest(t *testing.T) {
	collector := NewLogCollector(3)
	for i := 0; i < 5; i++ {
		collector.AddLog("arm", entry(fmt.Sprintf("msg %d", i)))
	}

	logs := collector.GetLogs("arm")
	require.Len(t, logs, 3)
	assert.Equal(t, "msg 2", logs[0].Message)
	assert.Equal(t, "msg 4", logs[2].Message)
}

func TestLogCollector_AddLog_Concurrent(t *testing.T) {
	collector := NewLogCollector(1000)
	const numGoroutines = 50
	const logsPerGoroutine = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				collector.AddLog("arm", entry("concurrent"))
				_ = collector.GetAllLogs()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, collector.GetLogs("arm"), numGoroutines*logsPerGoroutine)
}

func TestLogCollector_GetLogs_ReturnsCopy(t *testing.T) {
	collector := NewLogCollector(5)
	collector.AddLog("arm", entry("original"))

	logs := collector.GetLogs("arm")
	logs[0].Message = "modified"

	assert.Equal(t, "original", collector.GetLogs("arm")[0].Message)
}

func TestLogCollector_GetAllLogsAndKeys(t *testing.T) {
	collector := NewLogCollector(5)
	collector.AddLog("grabber", entry("a"))
	collector.AddLog("arm", entry("b"))
	collector.AddLog("arm", entry("c"))

	all := collector.GetAllLogs()
	assert.Len(t, all, 2)
	assert.Len(t, all["arm"], 2)
	assert.Equal(t, []string{"arm", "grabber"}, collector.Keys())
}

func TestLogCollector_Clear(t *testing.T) {
	collector := NewLogCollector(5)
	collector.AddLog("arm", entry("a"))

	collector.Clear()

	assert.Empty(t, collector.Keys())
	assert.Nil(t, collector.GetLogs("arm"))
}

package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCronTriggerManager(t *testing.T) {
	specs, err := ParseTriggerSpecs("dump,summary:0 2 * * *;summary:0 3 * * *", testAvailableJobs)
	require.NoError(t, err)

	manager, err := NewCronTriggerManager(specs, &mockRunnable{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, manager.Len())
}

func TestNewCronTriggerManager_InvalidSchedule(t *testing.T) {
	manager, err := NewCronTriggerManager([]TriggerSpec{{Jobs: []string{"dump"}, CronSpec: "whenever"}}, &mockRunnable{}, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCronSpec)
	assert.Contains(t, err.Error(), "dump:whenever")
	assert.Nil(t, manager)
}

func TestCronTriggerManager_NextRun(t *testing.T) {
	specs, err := ParseTriggerSpecs("dump:0 2 * * *;summary:0 14 * * *;dump:0 20 * * *", testAvailableJobs)
	require.NoError(t, err)
	manager, err := NewCronTriggerManager(specs, &mockRunnable{}, testLogger())
	require.NoError(t, err)

	nextRun := manager.NextRun()
	assert.True(t, nextRun.After(time.Now()))

	earliest := manager.triggers[0].NextRun()
	for _, trigger := range manager.triggers[1:] {
		if next := trigger.NextRun(); next.Before(earliest) {
			earliest = next
		}
	}
	assert.Equal(t, earliest, nextRun)
}

func TestCronTriggerManager_NextRun_NoTriggers(t *testing.T) {
	manager, err := NewCronTriggerManager(nil, &mockRunnable{}, testLogger())
	require.NoError(t, err)
	assert.True(t, manager.NextRun().IsZero())
}

func TestCronTriggerManager_StartRunsJobs(t *testing.T) {
	runnable := &mockRunnable{}
	specs, err := ParseTriggerSpecs("dump,summary:@every 1s", testAvailableJobs)
	require.NoError(t, err)
	manager, err := NewCronTriggerManager(specs, runnable, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)

	assert.Eventually(t, func() bool {
		return runnable.runCount.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"dump", "summary"}, runnable.jobs.Load())
}

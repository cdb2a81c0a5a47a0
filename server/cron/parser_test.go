package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serverconfig "github.com/xero1425/xerobot/server/config"
)

var testAvailableJobs = map[string]bool{
	"dump":    true,
	"summary": true,
}

func TestParseTriggerSpecs_Valid(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []TriggerSpec
	}{
		{
			name: "single trigger",
			spec: "dump:0 2 * * *",
			want: []TriggerSpec{{Jobs: []string{"dump"}, CronSpec: "0 2 * * *"}},
		},
		{
			name: "multiple jobs",
			spec: "dump,summary:*/5 * * * *",
			want: []TriggerSpec{{Jobs: []string{"dump", "summary"}, CronSpec: "*/5 * * * *"}},
		},
		{
			name: "multiple triggers",
			spec: "dump:0 * * * *;summary:@every 30s",
			want: []TriggerSpec{
				{Jobs: []string{"dump"}, CronSpec: "0 * * * *"},
				{Jobs: []string{"summary"}, CronSpec: "@every 30s"},
			},
		},
		{
			name: "whitespace",
			spec: "  dump , summary : @hourly ; summary : * * * * *  ",
			want: []TriggerSpec{
				{Jobs: []string{"dump", "summary"}, CronSpec: "@hourly"},
				{Jobs: []string{"summary"}, CronSpec: "* * * * *"},
			},
		},
		{
			name: "trailing semicolon",
			spec: "dump:@every 1m;",
			want: []TriggerSpec{{Jobs: []string{"dump"}, CronSpec: "@every 1m"}},
		},
		{
			name: "same job in two triggers",
			spec: "dump:0 2 * * *;dump:0 14 * * *",
			want: []TriggerSpec{
				{Jobs: []string{"dump"}, CronSpec: "0 2 * * *"},
				{Jobs: []string{"dump"}, CronSpec: "0 14 * * *"},
			},
		},
		{
			name: "empty job in list",
			spec: "dump,,summary:0 2 * * *",
			want: []TriggerSpec{{Jobs: []string{"dump", "summary"}, CronSpec: "0 2 * * *"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := ParseTriggerSpecs(tt.spec, testAvailableJobs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, specs)
		})
	}
}

func TestParseTriggerSpecs_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr string
	}{
		{name: "empty", spec: "", wantErr: "cannot be empty"},
		{name: "whitespace only", spec: "   ", wantErr: "cannot be empty"},
		{name: "only semicolons", spec: ";;;", wantErr: "no valid triggers"},
		{name: "missing colon", spec: "dump,summary", wantErr: "expected format 'jobs:cron'"},
		{name: "multiple colons", spec: "dump:0:2:* * *", wantErr: "expected format 'jobs:cron'"},
		{name: "missing jobs", spec: ":0 2 * * *", wantErr: "missing jobs"},
		{name: "all jobs empty", spec: ",,:0 2 * * *", wantErr: "missing jobs"},
		{name: "missing schedule", spec: "dump,summary:", wantErr: "missing cron schedule"},
		{name: "invalid expression", spec: "dump:invalid cron", wantErr: "invalid cron expression"},
		{name: "unknown job", spec: "reboot:0 2 * * *", wantErr: "unknown job 'reboot' (available: dump, summary)"},
		{name: "duplicate job", spec: "dump,dump:0 2 * * *", wantErr: "duplicate job 'dump'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTriggerSpecs(tt.spec, testAvailableJobs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSpecsFromConfig(t *testing.T) {
	specs, err := SpecsFromConfig([]serverconfig.CronTrigger{
		{Jobs: []string{"dump"}, Schedule: "@every 10s"},
		{Jobs: []string{" summary "}, Schedule: "0 * * * *"},
	}, testAvailableJobs)
	require.NoError(t, err)
	assert.Equal(t, []TriggerSpec{
		{Jobs: []string{"dump"}, CronSpec: "@every 10s"},
		{Jobs: []string{"summary"}, CronSpec: "0 * * * *"},
	}, specs)

	_, err = SpecsFromConfig([]serverconfig.CronTrigger{
		{Jobs: []string{"dump"}, Schedule: "@every 10s"},
		{Jobs: []string{"explode"}, Schedule: "@hourly"},
	}, testAvailableJobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron trigger 1")

	specs, err = SpecsFromConfig(nil, testAvailableJobs)
	require.NoError(t, err)
	assert.Empty(t, specs)
}

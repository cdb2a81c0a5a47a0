package cron

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	serverconfig "github.com/xero1425/xerobot/server/config"
)

const (
	triggerSeparator = ";"
	jobSeparator     = ":"
	jobListSeparator = ","
)

// TriggerSpec represents a parsed trigger specification with jobs and cron schedule.
type TriggerSpec struct {
	Jobs     []string
	CronSpec string
}

// ParseTriggerSpecs parses a multi-trigger specification string into individual trigger specs.
// The format is: job1,job2:cron_expression;job3:cron_expression2
//
// Example:
//
//	"dump,summary:*/5 * * * *;summary:@every 30s"
//
// Returns an error if:
//   - Any trigger is missing jobs or cron expression
//   - Any job name is not in availableJobs
//   - Any cron expression is invalid
//   - Any trigger has duplicate jobs
func ParseTriggerSpecs(spec string, availableJobs map[string]bool) ([]TriggerSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("cron spec cannot be empty")
	}

	triggerStrs := strings.Split(spec, triggerSeparator)
	specs := make([]TriggerSpec, 0, len(triggerStrs))

	for _, triggerStr := range triggerStrs {
		triggerStr = strings.TrimSpace(triggerStr)
		if triggerStr == "" {
			continue // Skip empty triggers (e.g., trailing semicolon)
		}

		parts := strings.Split(triggerStr, jobSeparator)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid trigger spec: expected format 'jobs:cron', got '%s'", triggerStr)
		}

		triggerSpec, err := newTriggerSpec(strings.Split(parts[0], jobListSeparator), parts[1], availableJobs)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger spec '%s': %w", triggerStr, err)
		}
		specs = append(specs, triggerSpec)
	}

	if len(specs) == 0 {
		return nil, errors.New("no valid triggers found in cron spec")
	}

	return specs, nil
}

// SpecsFromConfig validates the triggers of the server config section.
func SpecsFromConfig(triggers []serverconfig.CronTrigger, availableJobs map[string]bool) ([]TriggerSpec, error) {
	specs := make([]TriggerSpec, 0, len(triggers))
	for i, trigger := range triggers {
		spec, err := newTriggerSpec(trigger.Jobs, trigger.Schedule, availableJobs)
		if err != nil {
			return nil, fmt.Errorf("cron trigger %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func newTriggerSpec(jobNames []string, cronSpec string, availableJobs map[string]bool) (TriggerSpec, error) {
	cronSpec = strings.TrimSpace(cronSpec)
	if cronSpec == "" {
		return TriggerSpec{}, errors.New("missing cron schedule")
	}

	jobs := make([]string, 0, len(jobNames))
	seen := make(map[string]bool, len(jobNames))
	for _, j := range jobNames {
		j = strings.TrimSpace(j)
		if j == "" {
			continue
		}
		if seen[j] {
			return TriggerSpec{}, fmt.Errorf("duplicate job '%s'", j)
		}
		seen[j] = true

		if !availableJobs[j] {
			return TriggerSpec{}, fmt.Errorf("unknown job '%s' (available: %s)", j, formatAvailableJobs(availableJobs))
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return TriggerSpec{}, errors.New("missing jobs")
	}

	if _, err := specParser.Parse(cronSpec); err != nil {
		return TriggerSpec{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	return TriggerSpec{Jobs: jobs, CronSpec: cronSpec}, nil
}

// formatAvailableJobs formats the available jobs for error messages.
func formatAvailableJobs(availableJobs map[string]bool) string {
	jobs := make([]string, 0, len(availableJobs))
	for j := range availableJobs {
		jobs = append(jobs, j)
	}
	sort.Strings(jobs)
	return strings.Join(jobs, ", ")
}

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sieve/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	failures int
	runs     int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(_ context.Context) error {
	j.runs++
	if j.runs <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&stubJob{name: "scan", schedule: "@daily"}))
	assert.Error(t, s.AddJob(&stubJob{name: "scan", schedule: "@daily"}))
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.AddJob(&stubJob{name: "scan", schedule: "not a cron expr"}))
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(0, 0)
	job := &stubJob{name: "scan", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("scan"))

	history, err := s.History("scan")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 1.0, history.SuccessRate())
}

func TestRunJobRetriesUntilSuccess(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(3, time.Millisecond)
	job := &stubJob{name: "scan", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("scan"))

	assert.Equal(t, 3, job.runs)
	history, _ := s.History("scan")
	assert.True(t, history.Results[0].Success)
}

func TestRunJobExhaustedRetriesRecordsFailure(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(1, time.Millisecond)
	job := &stubJob{name: "scan", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("scan"))

	assert.Equal(t, 2, job.runs)
	history, _ := s.History("scan")
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.NotEmpty(t, history.Results[0].Error)
	assert.Equal(t, 0.0, history.SuccessRate())
}

func TestRunJobUnknownName(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.RunJob("nope"))
}

func TestJobHistoryCap(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "scan", Success: true})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.LatestResults(10), 10)
}

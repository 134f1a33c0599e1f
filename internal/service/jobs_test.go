package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobManager(t *testing.T) {
	tests := []struct {
		name       string
		fn         JobFunc
		wantStatus JobStatus
		wantError  string
		wantResult any
	}{
		{
			name: "completed",
			fn: func(ctx context.Context, job *Job) (any, error) {
				return 42, nil
			},
			wantStatus: JobStatusCompleted,
			wantResult: 42,
		},
		{
			name: "failed",
			fn: func(ctx context.Context, job *Job) (any, error) {
				return nil, errors.New("folder vanished")
			},
			wantStatus: JobStatusFailed,
			wantError:  "folder vanished",
		},
		{
			name: "panic",
			fn: func(ctx context.Context, job *Job) (any, error) {
				panic("boom")
			},
			wantStatus: JobStatusFailed,
			wantError:  "internal panic: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewJobManager(nil)
			job := m.Start(context.Background(), "index", tt.fn)
			m.Wait()

			got := m.GetJob(job.ID).Snapshot()
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantError, got.Error)
			assert.Equal(t, tt.wantResult, got.Result)
			assert.NotNil(t, got.CompletedAt)
		})
	}
}

func TestJobManager_ProgressAndCancel(t *testing.T) {
	m := NewJobManager(nil)
	ctx, cancel := context.WithCancel(context.Background())

	job := m.Start(ctx, "index", func(ctx context.Context, job *Job) (any, error) {
		cancel()
		m.UpdateProgress(job, 3, 5)
		// Jobs outlive the request that started them.
		return nil, ctx.Err()
	})
	m.Wait()

	got := job.Snapshot()
	assert.Equal(t, JobStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Progress)
	assert.Equal(t, 5, got.Total)
}

func TestJobManager_ListJobs(t *testing.T) {
	m := NewJobManager(nil)
	first := m.Start(context.Background(), "index", func(ctx context.Context, job *Job) (any, error) { return nil, nil })
	m.Wait()
	second := m.Start(context.Background(), "match", func(ctx context.Context, job *Job) (any, error) { return nil, nil })
	m.Wait()

	jobs := m.ListJobs()
	require.Len(t, jobs, 2)
	if jobs[0].StartedAt.Equal(jobs[1].StartedAt) {
		assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{jobs[0].ID, jobs[1].ID})
	} else {
		assert.Equal(t, second.ID, jobs[0].ID)
	}
	assert.Nil(t, m.GetJob("missing"))
}

func TestJobManager_WaitContext(t *testing.T) {
	m := NewJobManager(nil)
	release := make(chan struct{})
	m.Start(context.Background(), "match", func(ctx context.Context, job *Job) (any, error) {
		<-release
		return nil, nil
	})
	assert.Equal(t, 1, m.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.WaitContext(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, m.Active())

	close(release)
	require.NoError(t, m.WaitContext(context.Background()))
	assert.Zero(t, m.Active())
}

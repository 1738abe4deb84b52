package jobtracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartJobRejectsConcurrent(t *testing.T) {
	tr := New()
	release := make(chan struct{})
	_, err := tr.StartJob(JobSync, func(ctx context.Context, p *ProgressReporter) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	_, err = tr.StartJob(JobEmbed, func(ctx context.Context, p *ProgressReporter) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
	close(release)
}

func TestJobCompletesAndFreesSlot(t *testing.T) {
	tr := New()
	id, err := tr.StartJob(JobAdd, func(ctx context.Context, p *ProgressReporter) (any, error) {
		p.Update(1, 2, "a.md")
		p.Update(2, 2, "b.md")
		return "done", nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, ok := tr.GetJobStatus(id)
		return ok && info.Status == StatusCompleted
	}, time.Second, 5*time.Millisecond)

	info, ok := tr.GetJobStatus(id)
	require.True(t, ok)
	require.Equal(t, "done", info.Result)
	require.NotEmpty(t, info.ServerInstanceID)

	// Slot is free again.
	_, err = tr.StartJob(JobSync, func(ctx context.Context, p *ProgressReporter) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
}

func TestJobFailureFreesSlot(t *testing.T) {
	tr := New()
	_, err := tr.StartJob(JobAdd, func(ctx context.Context, p *ProgressReporter) (any, error) {
		return nil, errTest{}
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := tr.StartJob(JobSync, func(ctx context.Context, p *ProgressReporter) (any, error) { return nil, nil })
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

type errTest struct{}

func (errTest) Error() string { return "boom" }

func TestUnknownJobStatus(t *testing.T) {
	tr := New()
	_, ok := tr.GetJobStatus("does-not-exist")
	require.False(t, ok)
}

package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyatts97/schedx/internal/models"
)

func TestRetentionCleanupJob_DeletesPerConfiguredWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)

	settings := &fakeRetentionRepo{settings: &models.RetentionSettings{
		Enabled:                 true,
		StatsRetentionDays:      90,
		EventsRetentionDays:     30,
		SnapshotMinTweetAgeDays: 7,
	}}
	analytics := &fakeAnalyticsRepo{statsDeleted: 12, eventsDeleted: 40}

	j := NewRetentionCleanupJob(settings, analytics)
	j.nowFn = func() time.Time { return now }

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), result.Deleted["tweet_stats"])
	assert.Equal(t, int64(40), result.Deleted["engagement_events"])
	assert.Equal(t, int64(52), result.Total)
	assert.Empty(t, result.Errors)

	// a 91-day-old snapshot falls before the cutoff, an 89-day-old one after
	assert.True(t, now.AddDate(0, 0, -91).Before(analytics.statsCutoff))
	assert.True(t, now.AddDate(0, 0, -89).After(analytics.statsCutoff))
	assert.True(t, now.AddDate(0, 0, -31).Before(analytics.eventsCutoff))

	assert.Equal(t, 1, settings.setCalls)
	assert.Equal(t, now, settings.lastRunAt)
}

func TestRetentionCleanupJob_FailedTableBlocksLastRunAt(t *testing.T) {
	settings := &fakeRetentionRepo{settings: &models.RetentionSettings{
		Enabled:             true,
		StatsRetentionDays:  90,
		EventsRetentionDays: 30,
	}}
	analytics := &fakeAnalyticsRepo{statsErr: errBoom, eventsDeleted: 5}

	j := NewRetentionCleanupJob(settings, analytics)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	// the healthy table is still swept
	assert.Equal(t, int64(5), result.Deleted["engagement_events"])
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "tweet_stats")

	assert.Zero(t, settings.setCalls, "last_run_at must not advance after a partial sweep")
}

func TestRetentionCleanupJob_MissingSettingsSkips(t *testing.T) {
	j := NewRetentionCleanupJob(&fakeRetentionRepo{}, &fakeAnalyticsRepo{})

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.Total)
}

func TestRetentionCleanupJob_DisabledWindowIsIgnored(t *testing.T) {
	settings := &fakeRetentionRepo{settings: &models.RetentionSettings{
		Enabled:             true,
		StatsRetentionDays:  0, // stats sweep off
		EventsRetentionDays: 30,
	}}
	analytics := &fakeAnalyticsRepo{eventsDeleted: 3}

	j := NewRetentionCleanupJob(settings, analytics)

	result, err := j.RunOnce(context.Background())
	require.NoError(t, err)

	_, swept := result.Deleted["tweet_stats"]
	assert.False(t, swept)
	assert.Equal(t, int64(3), result.Total)
}

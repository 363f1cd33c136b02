package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAt_SameInstantAcrossZones(t *testing.T) {
	instant := time.Date(2025, time.March, 15, 18, 30, 0, 0, time.UTC)

	zones := []string{"America/New_York", "Europe/Berlin", "Asia/Tokyo", "Australia/Sydney"}
	utc := At(instant, "")

	for _, tz := range zones {
		t.Run(tz, func(t *testing.T) {
			snap := At(instant, tz)
			assert.Equal(t, tz, snap.Timezone)

			got, err := snap.Instant()
			require.NoError(t, err)

			want, err := utc.Instant()
			require.NoError(t, err)

			assert.True(t, got.Equal(want), "snapshot in %s should describe the same instant as UTC", tz)
		})
	}
}

func TestAt_InvalidZoneFallsBackToUTC(t *testing.T) {
	instant := time.Date(2025, time.March, 15, 18, 30, 0, 0, time.UTC)

	for _, tz := range []string{"not-a-real-zone", "Mars/Olympus_Mons", ""} {
		snap := At(instant, tz)
		assert.Equal(t, "UTC", snap.Timezone)
		assert.Equal(t, "2025-03-15", snap.Date)
		assert.Equal(t, "18:30", snap.Time24)
	}
}

func TestAt_FieldsAreMutuallyConsistent(t *testing.T) {
	instant := time.Date(2025, time.March, 15, 18, 30, 0, 0, time.UTC)

	snap := At(instant, "America/New_York")

	// 18:30 UTC is 14:30 in New York during DST
	assert.Equal(t, "2025-03-15", snap.Date)
	assert.Equal(t, "14:30", snap.Time24)
	assert.Equal(t, "2:30 PM", snap.Time12)
	assert.Equal(t, "Saturday", snap.DayOfWeek)
	assert.Contains(t, snap.HumanReadable, "Saturday")
	assert.Contains(t, snap.HumanReadable, "March 15, 2025")
	assert.Contains(t, snap.HumanReadable, "2:30 PM")
	assert.Contains(t, snap.HumanReadable, "America/New_York")
}

func TestNow_NeverFails(t *testing.T) {
	before := time.Now().Add(-time.Minute)
	snap := Now("not-a-real-zone")
	assert.Equal(t, "UTC", snap.Timezone)

	got, err := snap.Instant()
	require.NoError(t, err)
	assert.True(t, got.After(before))
}

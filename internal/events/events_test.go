package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	payload := AllocationCompletedPayload{
		RunID:           "run-1",
		TotalRequests:   5,
		TotalOffers:     3,
		MatchedCount:    2,
		PartialFailures: 1,
		CompletedAt:     time.Now(),
	}

	event, err := NewEvent(AllocationCompleted, "run-1", payload)
	require.NoError(t, err)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, AllocationCompleted, event.EventType)
	assert.Equal(t, "run-1", event.SubjectID)

	data, err := event.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, parsed.EventID)

	var decoded AllocationCompletedPayload
	require.NoError(t, parsed.ParsePayload(&decoded))
	assert.Equal(t, 2, decoded.MatchedCount)
	assert.Equal(t, 1, decoded.PartialFailures)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("not json"))
	assert.Error(t, err)
}

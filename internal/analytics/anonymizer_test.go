package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenpoints/internal/models"
)

func TestPseudonymizeStable(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	a, err := NewAnonymizer(key)
	require.NoError(t, err)

	first := a.Pseudonymize("user-42")
	second := a.Pseudonymize("user-42")
	assert.Equal(t, first, second, "same user must map to the same pseudonym")
	assert.NotEqual(t, first, a.Pseudonymize("user-43"))
	assert.NotContains(t, first, "user-42")
	assert.NotEqual(t, reverse("user-42"), first, "pseudonym must not be a trivial transform of the user ID")
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func TestPseudonymizeDependsOnInstallKey(t *testing.T) {
	a1, err := NewAnonymizer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	a2, err := NewAnonymizer([]byte("fedcba9876543210fedcba9876543210"))
	require.NoError(t, err)

	assert.NotEqual(t, a1.Pseudonymize("user-42"), a2.Pseudonymize("user-42"))
}

func TestNewAnonymizerRejectsShortKey(t *testing.T) {
	_, err := NewAnonymizer([]byte("short"))
	assert.Error(t, err)
}

func TestSessionTokenEmptyInput(t *testing.T) {
	a, err := NewAnonymizer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	assert.Empty(t, a.SessionToken(""))
	assert.NotEmpty(t, a.SessionToken("session-1"))
	assert.Equal(t, a.SessionToken("session-1"), a.SessionToken("session-1"))
}

func TestCoarsenDevice(t *testing.T) {
	tests := []struct {
		model    string
		expected models.DeviceClass
	}{
		{"iPhone15,3", models.DeviceIPhone},
		{"iPhone SE", models.DeviceIPhone},
		{"iPad13,4", models.DeviceIPad},
		{"Watch6,1", models.DeviceOther},
		{"", models.DeviceOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CoarsenDevice(tt.model), "model %q", tt.model)
	}
}

func TestAnonymizeScrubsIdentifyingMetadata(t *testing.T) {
	a, err := NewAnonymizer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	raw := &models.RawEvent{
		ID:          "ev-1",
		UserID:      "user-42",
		SessionID:   "session-1",
		Payload:     models.FeatureUsed{Feature: "reward_browser"},
		OccurredAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		AppVersion:  "2.1.0",
		OSVersion:   "17.4",
		DeviceModel: "iPhone15,3",
		Metadata: map[string]string{
			"user_id":       "user-42",
			"Device_Name":   "Alex's iPhone",
			"email":         "parent@example.com",
			"advertiser_id": "abc-123",
			"screen":        "rewards",
		},
	}

	event := a.Anonymize(raw)

	assert.Equal(t, "ev-1", event.ID)
	assert.Equal(t, a.Pseudonymize("user-42"), event.Pseudonym)
	assert.Equal(t, models.DeviceIPhone, event.DeviceClass)
	assert.Equal(t, map[string]string{"screen": "rewards"}, event.Metadata)
	assert.NotContains(t, event.Metadata, "user_id")
	assert.NotContains(t, event.Metadata, "Device_Name")
}

func TestAnonymizeEmptyMetadata(t *testing.T) {
	a, err := NewAnonymizer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	event := a.Anonymize(&models.RawEvent{
		ID:      "ev-2",
		UserID:  "user-42",
		Payload: models.CrashReported{},
	})
	assert.Nil(t, event.Metadata)
	assert.Empty(t, event.SessionToken)
}

package analytics

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"screenpoints/internal/models"
)

// metadata keys that could identify a person or device are stripped before
// an event is allowed to leave the anonymizer
var droppedMetadataKeys = map[string]struct{}{
	"user_id":       {},
	"device_id":     {},
	"device_name":   {},
	"email":         {},
	"name":          {},
	"phone":         {},
	"advertiser_id": {},
}

// Anonymizer converts raw telemetry into its storable anonymized form.
// Pseudonyms are keyed HMACs of the user ID under a per-installation key, so
// the same user maps to the same pseudonym here and to nothing anywhere else.
// Session tokens use a key generated fresh at process start; they correlate
// events within one run and cannot be linked across restarts.
type Anonymizer struct {
	installKey []byte
	sessionKey []byte
}

// NewAnonymizer creates an anonymizer bound to the given installation key
func NewAnonymizer(installKey []byte) (*Anonymizer, error) {
	if len(installKey) < 16 {
		return nil, fmt.Errorf("install key too short: %d bytes", len(installKey))
	}
	sessionKey := make([]byte, 32)
	if _, err := rand.Read(sessionKey); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return &Anonymizer{installKey: installKey, sessionKey: sessionKey}, nil
}

// Pseudonymize derives the stable pseudonym for a user ID
func (a *Anonymizer) Pseudonymize(userID string) string {
	return hmacHex(a.installKey, userID)
}

// SessionToken derives the ephemeral correlation token for a session ID
func (a *Anonymizer) SessionToken(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return hmacHex(a.sessionKey, sessionID)
}

// CoarsenDevice reduces an exact device model string to a broad class
func CoarsenDevice(model string) models.DeviceClass {
	switch {
	case strings.HasPrefix(model, "iPhone"):
		return models.DeviceIPhone
	case strings.HasPrefix(model, "iPad"):
		return models.DeviceIPad
	default:
		return models.DeviceOther
	}
}

// Anonymize produces the only form of an event that may be stored. The raw
// event is not modified and must be discarded by the caller.
func (a *Anonymizer) Anonymize(raw *models.RawEvent) *models.AnonymizedEvent {
	var metadata map[string]string
	for k, v := range raw.Metadata {
		if _, drop := droppedMetadataKeys[strings.ToLower(k)]; drop {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[k] = v
	}

	return &models.AnonymizedEvent{
		ID:           raw.ID,
		Pseudonym:    a.Pseudonymize(raw.UserID),
		SessionToken: a.SessionToken(raw.SessionID),
		Payload:      raw.Payload,
		OccurredAt:   raw.OccurredAt.UTC(),
		AppVersion:   raw.AppVersion,
		OSVersion:    raw.OSVersion,
		DeviceClass:  CoarsenDevice(raw.DeviceModel),
		Metadata:     metadata,
	}
}

func hmacHex(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

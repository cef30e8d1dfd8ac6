package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := Sign(payload, "whsec_test", now)
	assert.NoError(t, VerifySignature(payload, header, "whsec_test", DefaultTolerance, now))
}

func TestVerifySignature_Rejections(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := Sign(payload, "whsec_test", now)

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		now     time.Time
	}{
		{"tampered payload", []byte(`{"id":"evt_2"}`), header, "whsec_test", now},
		{"wrong secret", payload, header, "whsec_other", now},
		{"stale timestamp", payload, Sign(payload, "whsec_test", now.Add(-10*time.Minute)), "whsec_test", now},
		{"future timestamp", payload, Sign(payload, "whsec_test", now.Add(10*time.Minute)), "whsec_test", now},
		{"malformed header", payload, "not-a-signature", "whsec_test", now},
		{"missing v1", payload, "t=12345", "whsec_test", now},
		{"empty header", payload, "", "whsec_test", now},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.payload, tc.header, tc.secret, DefaultTolerance, tc.now)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestVerifySignature_AcceptsAnyMatchingV1(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	good := Sign(payload, "whsec_test", now)

	// a rotated-secret header carries an old signature next to the valid one
	header := good + ",v1=deadbeef"
	assert.NoError(t, VerifySignature(payload, header, "whsec_test", DefaultTolerance, now))
}

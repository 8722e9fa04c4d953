package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how old a signed webhook payload may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignatureHeader = errors.New("invalid signature header")
	ErrNoValidSignature       = errors.New("no valid signature")
	ErrTimestampTooOld        = errors.New("signature timestamp outside tolerance")
)

// ConstructEvent verifies the provider's signature header and unmarshals the
// payload into an Event. The header carries a unix timestamp and one or more
// HMAC-SHA256 signatures over "<timestamp>.<payload>".
func ConstructEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	const op = "billing.ConstructEvent"

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if now.Sub(time.Unix(timestamp, 0)) > DefaultTolerance {
		return nil, fmt.Errorf("%s: %w", op, ErrTimestampTooOld)
	}

	expected := computeSignature(timestamp, payload, secret)
	valid := false
	for _, sig := range signatures {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%s: %w", op, ErrNoValidSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, ErrInvalidSignatureHeader
	}

	var timestamp int64
	var signatures []string
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return 0, nil, ErrInvalidSignatureHeader
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignatureHeader
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, ErrInvalidSignatureHeader
	}
	return timestamp, signatures, nil
}

func computeSignature(timestamp int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return mac.Sum(nil)
}

// SignPayload builds a valid signature header for a payload. Used by tests
// and local tooling that replays webhook deliveries.
func SignPayload(payload []byte, secret string, now time.Time) string {
	timestamp := now.Unix()
	sig := computeSignature(timestamp, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(sig))
}

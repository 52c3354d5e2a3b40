package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeClaims are registered JWT claims holding NumericDate values.
var timeClaims = map[string]bool{"exp": true, "iat": true, "nbf": true, "auth_time": true}

// IsJWT reports whether input looks like a JWT: three non-empty base64url
// parts, the first two of which are JSON objects.
func IsJWT(input string) bool {
	parts, ok := jwtParts(input)
	if !ok {
		return false
	}
	for i := 0; i < 2; i++ {
		if _, err := decodeJWTSegment(parts[i]); err != nil {
			return false
		}
	}
	_, err := base64.RawURLEncoding.DecodeString(parts[2])
	return err == nil
}

func jwtParts(input string) ([]string, bool) {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "Bearer ")
	input = strings.TrimSpace(input)
	parts := strings.Split(input, ".")
	if len(parts) != 3 {
		return nil, false
	}
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
	}
	return parts, true
}

// DecodeJWT splits a token into header, payload and the raw signature.
// NumericDate claims in the payload become time.Time values so they display
// as timestamps.
func DecodeJWT(input string) (map[string]any, error) {
	parts, ok := jwtParts(input)
	if !ok {
		return nil, fmt.Errorf("invalid JWT: expected 3 non-empty parts")
	}
	header, err := decodeJWTSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid JWT header: %w", err)
	}
	payload, err := decodeJWTSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid JWT payload: %w", err)
	}
	for claim, v := range payload {
		if !timeClaims[claim] {
			continue
		}
		if n, ok := v.(json.Number); ok {
			if secs, err := n.Int64(); err == nil {
				payload[claim] = time.Unix(secs, 0).UTC()
			}
		}
	}
	return map[string]any{
		"header":    header,
		"payload":   payload,
		"signature": parts[2],
	}, nil
}

func decodeJWTSegment(seg string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("segment is not a JSON object")
	}
	return obj, nil
}

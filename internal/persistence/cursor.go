// Package persistence contains helpers shared by store implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/timetrack/internal/domain"
)

// EncodeCursor serialises the cursor to an opaque token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%d", c.StartTime.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token yields nil.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &domain.Cursor{StartTime: ts.UTC(), ID: id}, nil
}

// After reports whether a track sorts strictly after the cursor in
// (start_time DESC, id DESC) order.
func After(c *domain.Cursor, startTime time.Time, id int64) bool {
	if c == nil {
		return true
	}
	if startTime.Equal(c.StartTime) {
		return id < c.ID
	}
	return startTime.Before(c.StartTime)
}

// NextCursor returns the cursor for the page following tracks, or nil when the page was short.
func NextCursor(tracks []domain.Track, limit int) *domain.Cursor {
	if limit <= 0 || len(tracks) < limit {
		return nil
	}
	last := tracks[len(tracks)-1]
	return &domain.Cursor{StartTime: last.StartTime, ID: last.ID}
}

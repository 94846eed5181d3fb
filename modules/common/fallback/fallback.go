package fallback

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"strconv"
	"strings"
)

const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMB/6X+ZQAAAABJRU5ErkJggg=="

var transparentPixelBytes []byte

func init() {
	data, err := base64.StdEncoding.DecodeString(transparentPixelBase64)
	if err != nil {
		log.Printf("⚠️ Failed to decode placeholder pixel: %v", err)
		return
	}
	transparentPixelBytes = data
}

// PlaceholderBytes returns a copy of the transparent PNG bytes.
func PlaceholderBytes() []byte {
	if len(transparentPixelBytes) == 0 {
		return []byte{}
	}
	out := make([]byte, len(transparentPixelBytes))
	copy(out, transparentPixelBytes)
	return out
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt converts common number shapes into int with a fallback.
func SafeInt(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case float32:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// SafeAspectRatio provides a sane default aspect ratio for transform requests.
func SafeAspectRatio(value interface{}) string {
	return SafeString(value, "1:1")
}

// SafeLimit clamps a page size into [1, max], falling back when unset.
func SafeLimit(value interface{}, fallback, max int) int {
	n := SafeInt(value, fallback)
	if n < 1 {
		n = fallback
	}
	if n > max {
		n = max
	}
	return n
}

// SafeOffset never goes negative.
func SafeOffset(value interface{}) int {
	n := SafeInt(value, 0)
	if n < 0 {
		return 0
	}
	return n
}

package localize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/art-solutions/nanobana-gen/modules/common/apperr"
)

// Output extensions passed through unchanged; anything else gets .png
// appended because the transform output is always PNG.
var recognizedExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

// groupRef finds $1-style capture references in a replace template.
var groupRef = regexp.MustCompile(`\$(\d+)`)

// Deriver computes output filenames from a source name and a find/replace
// rule. The clock is injected so tests can pin the timestamp.
type Deriver struct {
	now func() time.Time
}

// NewDeriver - deriver on the wall clock.
func NewDeriver() *Deriver {
	return &Deriver{now: time.Now}
}

// NewDeriverWithClock - deriver on a fixed clock, for tests.
func NewDeriverWithClock(now func() time.Time) *Deriver {
	return &Deriver{now: now}
}

// Derive - output filename for a source name or URL.
//
// The template substitution is two passes in a fixed order: the literal
// token TIMESTAMP is replaced with epoch milliseconds first, then the regex
// capture groups are expanded. A template may carry both, so the order is
// load-bearing. A pattern that is empty, does not compile or does not match
// falls back to a timestamped default; no input ever produces an error.
func (d *Deriver) Derive(sourceURL, findPattern, replaceTemplate string) string {
	base := sourceName(sourceURL)
	millis := d.now().UnixMilli()

	name, err := applyPattern(base, findPattern, replaceTemplate, millis)
	if err != nil {
		return fmt.Sprintf("localized_%d.png", millis)
	}

	return ensureExtension(name)
}

// applyPattern - pattern branch of the derivation. All failure modes come
// back as ErrPattern; the caller swallows them into the default name.
func applyPattern(base, findPattern, replaceTemplate string, millis int64) (string, error) {
	if findPattern == "" {
		return "", fmt.Errorf("%w: no pattern configured", apperr.ErrPattern)
	}

	re, err := regexp.Compile(findPattern)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrPattern, err)
	}
	if !re.MatchString(base) {
		return "", fmt.Errorf("%w: pattern did not match %q", apperr.ErrPattern, base)
	}

	// Pass 1: timestamp token.
	resolved := strings.ReplaceAll(replaceTemplate, "TIMESTAMP", strconv.FormatInt(millis, 10))

	// Pass 2: capture groups. $1 refs are braced to ${1} first, otherwise
	// Go's expansion would read "$1_1724..." as one long group name and
	// resolve it to nothing.
	resolved = groupRef.ReplaceAllString(resolved, "$${${1}}")
	return re.ReplaceAllString(base, resolved), nil
}

// sourceName - last path segment of a URL, query string and fragment
// stripped. A plain filename passes through unchanged.
func sourceName(sourceURL string) string {
	s := sourceURL
	if idx := strings.Index(s, "?"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, "#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

func ensureExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range recognizedExtensions {
		if strings.HasSuffix(lower, ext) {
			return name
		}
	}
	return name + ".png"
}

package localize

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedDeriver() *Deriver {
	return NewDeriverWithClock(func() time.Time { return fixedTime })
}

func TestDeriver_Derive_GroupAndTimestampTemplate(t *testing.T) {
	d := fixedDeriver()

	name := d.Derive(
		"inhale-exhale-customneon-mintgreen.jpg",
		`^.*-([^-.]+)\..*$`,
		"neonLED_$1_TIMESTAMP.png",
	)

	matched, err := regexp.MatchString(`^neonLED_mintgreen_\d+\.png$`, name)
	require.NoError(t, err)
	assert.True(t, matched, "got %q", name)
}

func TestDeriver_Derive_TimestampSubstitutedBeforeGroups(t *testing.T) {
	d := fixedDeriver()
	millis := fixedTime.UnixMilli()

	name := d.Derive("a-b.png", `^a-(b)\.png$`, "$1_TIMESTAMP")
	assert.Equal(t, fmt.Sprintf("b_%d.png", millis), name)
}

func TestDeriver_Derive_IsDeterministicUnderFixedClock(t *testing.T) {
	d := fixedDeriver()

	first := d.Derive("inhale-exhale-customneon-mintgreen.jpg", `^.*-([^-.]+)\..*$`, "neonLED_$1_TIMESTAMP.png")
	second := d.Derive("inhale-exhale-customneon-mintgreen.jpg", `^.*-([^-.]+)\..*$`, "neonLED_$1_TIMESTAMP.png")
	assert.Equal(t, first, second)
}

func TestDeriver_Derive_NonMatchingInputFallsBack(t *testing.T) {
	d := fixedDeriver()
	millis := fixedTime.UnixMilli()

	name := d.Derive("totally_different_name.png", `^.*-([^-.]+)\..*$`, "neonLED_$1_TIMESTAMP.png")
	assert.Equal(t, fmt.Sprintf("localized_%d.png", millis), name)
}

func TestDeriver_Derive_EmptyPatternFallsBack(t *testing.T) {
	d := fixedDeriver()
	millis := fixedTime.UnixMilli()

	name := d.Derive("banner.png", "", "")
	assert.Equal(t, fmt.Sprintf("localized_%d.png", millis), name)
}

func TestDeriver_Derive_BadPatternFallsBack(t *testing.T) {
	d := fixedDeriver()
	millis := fixedTime.UnixMilli()

	name := d.Derive("banner.png", "([unclosed", "x_$1.png")
	assert.Equal(t, fmt.Sprintf("localized_%d.png", millis), name)
}

func TestDeriver_Derive_URLTakesLastPathSegment(t *testing.T) {
	d := fixedDeriver()

	name := d.Derive(
		"https://cdn.example.com/assets/banner-en.png?sig=abc123&w=1200",
		`^banner-(\w+)\.png$`,
		"banner_$1_ko.png",
	)
	assert.Equal(t, "banner_en_ko.png", name)
}

func TestDeriver_Derive_SubstringMatchKeepsSurroundings(t *testing.T) {
	d := fixedDeriver()

	name := d.Derive("shop-banner-old.png", "old", "new")
	assert.Equal(t, "shop-banner-new.png", name)
}

func TestDeriver_Derive_AppendsPNGWhenExtensionUnrecognized(t *testing.T) {
	d := fixedDeriver()

	name := d.Derive("photo.jpg", `^photo\.jpg$`, "seoul_photo")
	assert.Equal(t, "seoul_photo.png", name)
}

func TestDeriver_Derive_KeepsRecognizedExtensions(t *testing.T) {
	d := fixedDeriver()

	for _, tc := range []struct {
		template string
		want     string
	}{
		{"out.webp", "out.webp"},
		{"out.jpeg", "out.jpeg"},
		{"out.gif", "out.gif"},
		{"out.PNG", "out.PNG"},
	} {
		name := d.Derive("src.png", `^src\.png$`, tc.template)
		assert.Equal(t, tc.want, name)
	}
}

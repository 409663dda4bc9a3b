// Package stream turns raw addon results into normalized, ranked Stream
// records.
package stream

import (
	"strconv"
	"strings"

	"github.com/YannickHerrero/miru/internal/classify"
	"github.com/YannickHerrero/miru/internal/models"
)

// Size multipliers, binary units
const (
	mib = int64(1024) * 1024
	gib = mib * 1024
	tib = gib * 1024
)

// Builder assembles addon results into Stream records using a shared
// classifier. Build is a pure function of its inputs.
type Builder struct {
	classifier *classify.Classifier
}

// NewBuilder creates a builder backed by the given classifier
func NewBuilder(classifier *classify.Classifier) *Builder {
	return &Builder{classifier: classifier}
}

// Build parses one raw addon result into a Stream. It never fails: fields
// whose patterns are absent from the text stay empty.
func (b *Builder) Build(result models.AddonResult) models.Stream {
	// Name and title are joined with a newline so hints embedded in either
	// field are captured without merging token boundaries
	combined := result.Name + "\n" + result.Title

	sizeDisplay := b.classifier.SizeDisplay(combined)

	var sizeBytes *int64
	if bytes, ok := ParseSizeBytes(sizeDisplay); ok {
		sizeBytes = &bytes
	}

	return models.Stream{
		Provider:    parseProvider(result.Name),
		Quality:     b.classifier.Quality(combined),
		SizeDisplay: sizeDisplay,
		SizeBytes:   sizeBytes,
		Seeders:     b.classifier.Seeders(combined),
		VideoCodec:  b.classifier.VideoCodec(combined),
		Audio:       b.classifier.Audio(combined),
		HDR:         b.classifier.HDR(combined),
		SourceType:  b.classifier.SourceType(combined),
		Languages:   b.classifier.Languages(combined),
		IsCached:    isCached(result.Name),
		URL:         result.URL,
		TransferID:  result.TransferID,
	}
}

// parseProvider extracts the provider from the text after the last bracket,
// e.g. "[RD+] nyaasi" -> "nyaasi". Falls back to the raw name.
func parseProvider(name string) string {
	idx := strings.LastIndex(name, "]")
	if idx < 0 {
		return name
	}
	return strings.TrimSpace(name[idx+1:])
}

// isCached detects the debrid cached markers in the addon name.
// [RD+] means cached on Real-Debrid; [⚡] is the instant marker.
func isCached(name string) bool {
	return strings.Contains(name, "[RD+]") || strings.Contains(name, "[⚡]")
}

// ParseSizeBytes converts a size display string like "1.2 GB" into bytes,
// truncated to an integer. The second return value is false when the string
// is missing or malformed.
func ParseSizeBytes(display string) (int64, bool) {
	parts := strings.Fields(display)
	if len(parts) != 2 {
		return 0, false
	}

	value, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}

	var multiplier int64
	switch strings.ToUpper(parts[1]) {
	case "TB":
		multiplier = tib
	case "GB":
		multiplier = gib
	case "MB":
		multiplier = mib
	default:
		return 0, false
	}

	return int64(value * float64(multiplier)), true
}

// Package classify extracts typed tokens (quality, codec, HDR, audio, source,
// language, size, seeders) from free-text torrent release names. Matching is
// best-effort: a category that finds nothing yields an empty result, never an
// error.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Classifier holds the compiled pattern tables. Construct it once with New
// and share it; compilation is not repeated per stream.
type Classifier struct {
	quality       *regexp.Regexp
	hdr           *regexp.Regexp
	videoCodec    *regexp.Regexp
	audio         *regexp.Regexp
	audioChannels *regexp.Regexp
	source        *regexp.Regexp
	langFlags     *regexp.Regexp
	size          *regexp.Regexp
	seeders       *regexp.Regexp
}

// New compiles the pattern tables
func New() *Classifier {
	return &Classifier{
		quality: regexp.MustCompile(`(?i)\b(2160p|4K|1080p|720p|480p|360p)\b`),
		// HDR10+ is matched without a trailing boundary: "+" is not a word
		// character, so \b after it never holds
		hdr:           regexp.MustCompile(`(?i)(\bHDR10\+|\b(?:HDR10|DoVi|Dolby[\s.]?Vision|DV|HDR)\b)`),
		videoCodec:    regexp.MustCompile(`(?i)\b(HEVC|x265|H\.?265|AVC|x264|H\.?264|AV1|VC-1|10-?bit)\b`),
		audio:         regexp.MustCompile(`(?i)(\bDD\+|\b(?:DTS-HD[\s.]?MA|TrueHD|Atmos|EAC3|E-AC-3|AC3|DD|AAC|FLAC|DTS|LPCM)\b)`),
		audioChannels: regexp.MustCompile(`\b[257]\.[01]\b`),
		source:        regexp.MustCompile(`(?i)\b(UHD[-. ]?Blu-?Ray|Blu-?Ray|BD[-. ]?Rip|BR[-. ]?Rip|WEB[-. ]?DL|WEB[-. ]?Rip|REMUX|HDTV|DVD[-. ]?Rip)\b`),
		langFlags:     regexp.MustCompile(flagPattern()),
		size:          regexp.MustCompile(`(?i)💾\s*([\d.]+)\s*(GB|MB|TB)`),
		seeders:       regexp.MustCompile(`👤\s*(\d+)`),
	}
}

// Quality returns the quality token as found in the text ("2160p", "4K", ...),
// or empty. 4K is not rewritten to 2160p; only its rank is shared.
func (c *Classifier) Quality(text string) string {
	return c.quality.FindString(text)
}

// HDR returns the HDR variants found in the text, deduplicated and joined
// with " / " in first-seen order (e.g., "DV / HDR")
func (c *Classifier) HDR(text string) string {
	var variants []string
	for _, match := range c.hdr.FindAllString(text, -1) {
		variants = append(variants, canonicalHDR(match))
	}
	return strings.Join(lo.Uniq(variants), " / ")
}

func canonicalHDR(token string) string {
	switch strings.ToUpper(strings.ReplaceAll(token, ".", " ")) {
	case "DOVI", "DV", "DOLBY VISION", "DOLBYVISION":
		return "DV"
	case "HDR10+":
		return "HDR10+"
	case "HDR10":
		return "HDR10"
	default:
		return "HDR"
	}
}

// VideoCodec returns the normalized codec tokens found in the text,
// deduplicated and space-joined in first-seen order (e.g., "HEVC 10bit")
func (c *Classifier) VideoCodec(text string) string {
	var codecs []string
	for _, match := range c.videoCodec.FindAllString(text, -1) {
		codecs = append(codecs, canonicalVideoCodec(match))
	}
	return strings.Join(lo.Uniq(codecs), " ")
}

func canonicalVideoCodec(token string) string {
	switch strings.ToUpper(strings.ReplaceAll(token, ".", "")) {
	case "HEVC", "X265", "H265":
		return "HEVC"
	case "AVC", "X264", "H264":
		return "AVC"
	case "AV1":
		return "AV1"
	case "VC-1":
		return "VC-1"
	default: // 10BIT, 10-BIT
		return "10bit"
	}
}

// Audio returns the first audio codec found, normalized, with "Atmos"
// appended when it occurs anywhere in the text and a channel layout token
// appended when present (e.g., "TrueHD Atmos 7.1")
func (c *Classifier) Audio(text string) string {
	var parts []string

	if match := c.audio.FindString(text); match != "" {
		parts = append(parts, canonicalAudio(match))
	}

	// Atmos rides along with another codec (e.g., TrueHD Atmos)
	if strings.Contains(strings.ToUpper(text), "ATMOS") && !lo.Contains(parts, "Atmos") {
		parts = append(parts, "Atmos")
	}

	if channels := c.audioChannels.FindString(text); channels != "" {
		parts = append(parts, channels)
	}

	return strings.Join(parts, " ")
}

func canonicalAudio(token string) string {
	upper := strings.ToUpper(token)
	switch {
	case strings.Contains(upper, "DTS-HD"), strings.Contains(upper, "DTS HD"), strings.Contains(upper, "DTS.HD"):
		return "DTS-HD MA"
	case strings.Contains(upper, "TRUEHD"):
		return "TrueHD"
	case strings.Contains(upper, "ATMOS"):
		return "Atmos"
	case strings.Contains(upper, "EAC3"), strings.Contains(upper, "E-AC-3"), strings.Contains(upper, "DD+"):
		return "EAC3"
	case strings.Contains(upper, "AC3"), upper == "DD":
		return "AC3"
	case strings.Contains(upper, "AAC"):
		return "AAC"
	case strings.Contains(upper, "FLAC"):
		return "FLAC"
	case strings.Contains(upper, "LPCM"):
		return "LPCM"
	default:
		return "DTS"
	}
}

// SourceType returns the normalized release-source label found in the text
// (e.g., "UHD BluRay", "WEB-DL"), or empty. Matching treats "-", "." and
// space as equivalent separators.
func (c *Classifier) SourceType(text string) string {
	match := c.source.FindString(text)
	if match == "" {
		return ""
	}
	return canonicalSource(match)
}

func canonicalSource(token string) string {
	stripped := strings.ToUpper(strings.NewReplacer("-", "", ".", "", " ", "").Replace(token))
	switch stripped {
	case "UHDBLURAY":
		return "UHD BluRay"
	case "BLURAY":
		return "BluRay"
	case "BDRIP", "BRRIP":
		return "BDRip"
	case "WEBDL":
		return "WEB-DL"
	case "WEBRIP":
		return "WEBRip"
	case "REMUX":
		return "REMUX"
	case "HDTV":
		return "HDTV"
	case "DVDRIP":
		return "DVDRip"
	default:
		return token
	}
}

// Languages returns the deduplicated language names for the flag symbols
// found in the text, in first-seen order. Regional variants that map to the
// same language (e.g., 🇬🇧 and 🇺🇸) collapse to one entry.
func (c *Classifier) Languages(text string) []string {
	flags := c.langFlags.FindAllString(text, -1)
	if len(flags) == 0 {
		return nil
	}
	return lo.Uniq(lo.Map(flags, func(flag string, _ int) string {
		return flagLanguages[flag]
	}))
}

// SizeDisplay returns the human-readable size found after the disk marker
// (e.g., "1.2 GB"), or empty
func (c *Classifier) SizeDisplay(text string) string {
	matches := c.size.FindStringSubmatch(text)
	if matches == nil {
		return ""
	}
	return matches[1] + " " + strings.ToUpper(matches[2])
}

// Seeders returns the seeder count found after the person marker, or nil
func (c *Classifier) Seeders(text string) *int {
	matches := c.seeders.FindStringSubmatch(text)
	if matches == nil {
		return nil
	}

	count, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil
	}
	return &count
}

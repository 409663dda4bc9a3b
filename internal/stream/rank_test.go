package stream

import (
	"testing"

	"github.com/YannickHerrero/miru/internal/models"
)

func sized(provider, quality string, bytes int64) models.Stream {
	return models.Stream{Provider: provider, Quality: quality, SizeBytes: &bytes}
}

func TestRankQualityDescending(t *testing.T) {
	streams := []models.Stream{
		sized("a", "720p", 1),
		sized("b", "2160p", 1),
		sized("c", "1080p", 1),
		sized("d", "", 1),
	}

	ranked := Rank(streams)

	want := []string{"b", "c", "a", "d"}
	for i, provider := range want {
		if ranked[i].Provider != provider {
			t.Errorf("position %d: expected %s, got %s", i, provider, ranked[i].Provider)
		}
	}
}

func TestRankSmallerFileWinsTie(t *testing.T) {
	// Two 1080p streams: A at 2.0 GB, B at 1.5 GB -> B first
	a := sized("A", "1080p", 2*1024*1024*1024)
	b := sized("B", "1080p", 3*1024*1024*1024/2)

	ranked := Rank([]models.Stream{a, b})

	if ranked[0].Provider != "B" || ranked[1].Provider != "A" {
		t.Errorf("expected [B A], got [%s %s]", ranked[0].Provider, ranked[1].Provider)
	}
}

func TestRankUnknownSizeSortsLast(t *testing.T) {
	known := sized("known", "1080p", 50*1024*1024*1024)
	unknown := models.Stream{Provider: "unknown", Quality: "1080p"}

	ranked := Rank([]models.Stream{unknown, known})

	if ranked[0].Provider != "known" {
		t.Error("stream with unparseable size should sort last within its tier")
	}
}

func TestRankIsStable(t *testing.T) {
	// Equal quality and size keep their addon order
	a := sized("first", "1080p", 1024)
	b := sized("second", "1080p", 1024)

	ranked := Rank([]models.Stream{a, b})

	if ranked[0].Provider != "first" || ranked[1].Provider != "second" {
		t.Error("equal streams should preserve relative order")
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	streams := []models.Stream{
		sized("low", "480p", 1),
		sized("high", "2160p", 1),
	}

	Rank(streams)

	if streams[0].Provider != "low" {
		t.Error("Rank should sort a copy, not the input slice")
	}
}

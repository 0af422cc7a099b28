// Package momentum detects emerging and fading themes from windowed
// time-series analysis of the idea corpus.
//
// Momentum is the ratio of a theme's recent-window semantic density to
// its prior-window density. Gates scale with corpus size so a young
// corpus can still surface signals while a mature one demands more
// evidence.
package momentum

import (
	"sort"
	"time"

	"github.com/rizkyguvio/ThinkTank/internal/graph"
)

// Window sizes for the recent/prior partitions.
const (
	RecentWindow = 7 * 24 * time.Hour
	PriorWindow  = 14 * 24 * time.Hour
)

// EmergingCooldown keeps a theme from being re-flagged emerging within
// two weeks of its last flag.
const EmergingCooldown = 14 * 24 * time.Hour

// MaxEmergingSignals caps how many emerging themes are reported per run.
const MaxEmergingSignals = 3

// densityFloor keeps the momentum ratio finite when the prior window has
// no measurable density.
const densityFloor = 0.1

// Fading gate values: an established theme whose weekly raw count
// collapsed by more than 70%.
const (
	fadingMinTotal  = 10
	fadingMinPrior  = 4
	fadingMaxRecent = 1
)

// ThemeStats is the per-theme counter snapshot the detector reads.
type ThemeStats struct {
	Name           string
	TotalCount     int
	LastEmergingAt *time.Time
}

// IdeaRef is the minimal idea shape needed for windowing and density.
type IdeaRef struct {
	ID        string
	CreatedAt time.Time
	Tags      []string
	Embedding []float32
}

// Signal is one emerging or fading theme.
type Signal struct {
	Theme       string
	Momentum    float64
	RecentCount int
	PriorCount  int
	DropRatio   float64 // fading only: recent/prior raw counts
}

// Gates holds the corpus-size-scaled thresholds for emerging detection.
type Gates struct {
	MinFrequency      int
	MinRecent         int
	MomentumThreshold float64
}

// GatesForCorpus returns emerging-detection gates for a corpus of the
// given total size. Larger corpora get coarser thresholds.
func GatesForCorpus(totalIdeas int) Gates {
	switch {
	case totalIdeas < 10:
		return Gates{MinFrequency: 1, MinRecent: 1, MomentumThreshold: 0.1}
	case totalIdeas < 25:
		return Gates{MinFrequency: 2, MinRecent: 1, MomentumThreshold: 0.3}
	case totalIdeas < 50:
		return Gates{MinFrequency: 3, MinRecent: 2, MomentumThreshold: 0.8}
	default:
		return Gates{MinFrequency: 5, MinRecent: 3, MomentumThreshold: 1.2}
	}
}

// DetectEmerging returns at most MaxEmergingSignals themes whose recent
// semantic density is accelerating, sorted by momentum descending.
//
// A theme qualifies when its total frequency and recent-window count
// meet the corpus gates, its momentum meets the threshold, and it was
// not already flagged emerging within the cooldown window.
func DetectEmerging(themes []ThemeStats, ideas []IdeaRef, totalIdeas int, now time.Time) []Signal {
	gates := GatesForCorpus(totalIdeas)
	byTheme := partitionByTheme(ideas)

	var signals []Signal
	for _, theme := range themes {
		if theme.TotalCount < gates.MinFrequency {
			continue
		}
		if theme.LastEmergingAt != nil && now.Sub(*theme.LastEmergingAt) < EmergingCooldown {
			continue
		}

		recent, prior := windowed(byTheme[theme.Name], now)
		if len(recent) < gates.MinRecent {
			continue
		}

		densityRecent := windowDensity(recent)
		densityPrior := windowDensity(prior)
		m := densityRecent / maxFloat(densityPrior, densityFloor)
		if m < gates.MomentumThreshold {
			continue
		}

		signals = append(signals, Signal{
			Theme:       theme.Name,
			Momentum:    m,
			RecentCount: len(recent),
			PriorCount:  len(prior),
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Momentum > signals[j].Momentum
	})
	if len(signals) > MaxEmergingSignals {
		signals = signals[:MaxEmergingSignals]
	}
	return signals
}

// DetectFading returns established themes whose weekly raw idea count
// dropped by more than 70% against the prior week, most dramatic fade
// first.
func DetectFading(themes []ThemeStats, ideas []IdeaRef, now time.Time) []Signal {
	byTheme := partitionByTheme(ideas)

	var signals []Signal
	for _, theme := range themes {
		if theme.TotalCount < fadingMinTotal {
			continue
		}
		recent, prior := windowed(byTheme[theme.Name], now)
		if len(prior) < fadingMinPrior || len(recent) > fadingMaxRecent {
			continue
		}

		signals = append(signals, Signal{
			Theme:       theme.Name,
			RecentCount: len(recent),
			PriorCount:  len(prior),
			DropRatio:   float64(len(recent)) / float64(len(prior)),
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].DropRatio < signals[j].DropRatio
	})
	return signals
}

// windowed splits a theme's ideas into the recent (last 7 days) and
// prior (8–14 days ago) windows.
func windowed(ideas []IdeaRef, now time.Time) (recent, prior []IdeaRef) {
	recentStart := now.Add(-RecentWindow)
	priorStart := now.Add(-PriorWindow)

	for _, idea := range ideas {
		switch {
		case idea.CreatedAt.After(recentStart):
			recent = append(recent, idea)
		case idea.CreatedAt.After(priorStart):
			prior = append(prior, idea)
		}
	}
	return recent, prior
}

func windowDensity(ideas []IdeaRef) float64 {
	ids := make([]string, 0, len(ideas))
	embeddings := make(map[string][]float32, len(ideas))
	for _, idea := range ideas {
		ids = append(ids, idea.ID)
		if len(idea.Embedding) > 0 {
			embeddings[idea.ID] = idea.Embedding
		}
	}
	return graph.SemanticDensity(ids, embeddings)
}

func partitionByTheme(ideas []IdeaRef) map[string][]IdeaRef {
	byTheme := make(map[string][]IdeaRef)
	for _, idea := range ideas {
		for _, tag := range idea.Tags {
			byTheme[tag] = append(byTheme[tag], idea)
		}
	}
	return byTheme
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

package services

import (
	"math/rand"

	domain "github.com/pagelift/api/internal/domain"
)

const (
	defaultProofIntervalSeconds = 10
	minProofIntervalSeconds     = 2
	defaultProofMaxShows        = 4
	proofVisibilitySeconds      = 4
)

// SocialProofEvent is one synthetic "recent purchase" notification.
type SocialProofEvent struct {
	ShowAtSeconds int    `json:"show_at_seconds"`
	HideAtSeconds int    `json:"hide_at_seconds"`
	Name          string `json:"name"`
	City          string `json:"city"`
	StockAfter    int    `json:"stock_after,omitempty"`
}

// SocialProofSchedule is the full timer plan for one page view. The structure
// is deterministic; only the names and cities are random. The stock counter is
// cosmetic and never touches real inventory.
type SocialProofSchedule struct {
	Enabled         bool               `json:"enabled"`
	IntervalSeconds int                `json:"interval_seconds,omitempty"`
	Events          []SocialProofEvent `json:"events,omitempty"`
	InitialStock    int                `json:"initial_stock,omitempty"`
}

// SocialProofSimulatorDeps wires the randomness source, injectable for tests.
type SocialProofSimulatorDeps struct {
	Pick func(n int) int
}

// SocialProofSimulator plans the synthetic purchase notifications and the
// decrementing scarcity counter for a page view.
type SocialProofSimulator struct {
	pick func(n int) int
}

// NewSocialProofSimulator constructs a simulator.
func NewSocialProofSimulator(deps SocialProofSimulatorDeps) *SocialProofSimulator {
	pick := deps.Pick
	if pick == nil {
		pick = rand.Intn
	}
	return &SocialProofSimulator{pick: pick}
}

// Schedule builds the notification plan for the given content record. Returns
// a disabled schedule when the social proof module is off or absent.
func (s *SocialProofSimulator) Schedule(content ContentRecord) SocialProofSchedule {
	cfg := content.SocialProof
	if cfg == nil || !cfg.Enabled {
		return SocialProofSchedule{}
	}

	interval := cfg.IntervalSeconds
	if interval <= 0 {
		interval = defaultProofIntervalSeconds
	}
	if interval < minProofIntervalSeconds {
		interval = minProofIntervalSeconds
	}

	maxShows := cfg.MaxShows
	if maxShows <= 0 {
		maxShows = defaultProofMaxShows
	}

	stockEnabled := content.Stock != nil && content.Stock.Enabled
	stock := 0
	if stockEnabled {
		stock = content.Stock.Quantity
		if stock <= 0 {
			stock = domain.DefaultStockQuantity
		}
		if stock < domain.StockFloor {
			stock = domain.StockFloor
		}
	}

	cultural := domain.ResolveCulturalData(content.Language, nil, nil)

	schedule := SocialProofSchedule{
		Enabled:         true,
		IntervalSeconds: interval,
		Events:          make([]SocialProofEvent, 0, maxShows),
		InitialStock:    stock,
	}

	for i := 0; i < maxShows; i++ {
		showAt := interval * (i + 1)
		event := SocialProofEvent{
			ShowAtSeconds: showAt,
			HideAtSeconds: showAt + proofVisibilitySeconds,
			Name:          pickFrom(s.pick, cultural.Names),
			City:          pickFrom(s.pick, cultural.Cities),
		}
		if stockEnabled {
			if stock > domain.StockFloor {
				stock--
			}
			event.StockAfter = stock
		}
		schedule.Events = append(schedule.Events, event)
	}
	return schedule
}

func pickFrom(pick func(n int) int, values []string) string {
	if len(values) == 0 {
		return ""
	}
	index := pick(len(values))
	if index < 0 || index >= len(values) {
		index = 0
	}
	return values[index]
}

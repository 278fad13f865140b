// Package consensus aggregates per-strategy signals into a ranked,
// confidence-scored consensus signal set. A symbol only produces a
// consensus signal when enough strategies cover it and a majority of
// them agree on direction.
package consensus

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"nivesh/internal/domain"
)

// Configuration errors.
var (
	ErrMinStrategies = errors.New("min strategies must be at least 1")
	ErrThresholds    = errors.New("quality thresholds must satisfy 0 < floor <= medium <= high <= 1")
	ErrMaxSignals    = errors.New("max signals must be positive")
)

// Config controls how the Builder filters and scores consensus signals.
type Config struct {
	// Weights maps strategy name to its voting weight. Weights need not
	// sum to 1. Strategies absent from the map fall back to DefaultWeight.
	Weights map[string]float64

	// MinStrategies is the minimum number of strategies that must cover
	// a symbol before it is considered at all.
	MinStrategies int

	// Quality tier thresholds on the composite score. ScoreFloor is the
	// low-confidence cutoff below which signals are dropped.
	HighThreshold   float64
	MediumThreshold float64
	ScoreFloor      float64

	// MaxSignals caps the number of consensus signals returned.
	MaxSignals int

	// DefaultWeight is used for strategies missing from Weights.
	DefaultWeight float64
}

// DefaultConfig returns the standard production configuration.
func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		MinStrategies:   3,
		HighThreshold:   0.75,
		MediumThreshold: 0.60,
		ScoreFloor:      0.45,
		MaxSignals:      20,
		DefaultWeight:   0.1,
	}
}

// DefaultWeights returns the stock voting weights for the built-in
// strategies.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"momentum":       0.15,
		"breakout":       0.12,
		"mean-reversion": 0.12,
		"multibagger":    0.13,
	}
}

func (c Config) validate() error {
	if c.MinStrategies < 1 {
		return ErrMinStrategies
	}
	if !(c.ScoreFloor > 0 && c.ScoreFloor <= c.MediumThreshold &&
		c.MediumThreshold <= c.HighThreshold && c.HighThreshold <= 1) {
		return ErrThresholds
	}
	if c.MaxSignals < 1 {
		return ErrMaxSignals
	}
	return nil
}

// Builder computes consensus signals from per-strategy signal maps.
type Builder struct {
	cfg Config
	log *slog.Logger
}

// NewBuilder creates a Builder with the given configuration. It returns
// an error when the configuration is invalid.
func NewBuilder(cfg Config, log *slog.Logger) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("consensus config: %w", err)
	}
	if cfg.Weights == nil {
		cfg.Weights = DefaultWeights()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{cfg: cfg, log: log}, nil
}

// vote is one strategy's contribution for a symbol, ordered by strategy
// name so that majority tie-breaking is deterministic.
type vote struct {
	strategy string
	signal   domain.Signal
}

// Build aggregates the nested strategy → symbol → signal map into a
// ranked slice of consensus signals, sorted by composite score
// descending and capped at MaxSignals.
//
// Symbols covered by fewer than MinStrategies strategies, symbols whose
// majority direction is hold, and symbols below the agreement or score
// thresholds are silently dropped: that is filtering, not failure. A
// malformed signal only skips its own symbol.
func (b *Builder) Build(all map[string]map[string]domain.Signal) ([]domain.ConsensusSignal, error) {
	votes := groupBySymbol(all)

	symbols := make([]string, 0, len(votes))
	for sym := range votes {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	out := make([]domain.ConsensusSignal, 0, len(symbols))
	for _, sym := range symbols {
		cs, ok := b.buildSymbol(sym, votes[sym])
		if !ok {
			continue
		}
		out = append(out, cs)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > b.cfg.MaxSignals {
		out = out[:b.cfg.MaxSignals]
	}
	return out, nil
}

// groupBySymbol inverts the strategy → symbol map into per-symbol vote
// lists, sorted by strategy name. Ties in the majority vote resolve in
// favour of the direction seen first in this alphabetical order; the
// upstream system resolved them by map insertion order, which is not
// reproducible across runs.
func groupBySymbol(all map[string]map[string]domain.Signal) map[string][]vote {
	votes := make(map[string][]vote)
	for strat, bySymbol := range all {
		for sym, sig := range bySymbol {
			votes[sym] = append(votes[sym], vote{strategy: strat, signal: sig})
		}
	}
	for sym := range votes {
		vs := votes[sym]
		sort.Slice(vs, func(i, j int) bool { return vs[i].strategy < vs[j].strategy })
	}
	return votes
}

// buildSymbol computes the consensus signal for one symbol, returning
// ok=false when the symbol is filtered out.
func (b *Builder) buildSymbol(symbol string, votes []vote) (domain.ConsensusSignal, bool) {
	if len(votes) < b.cfg.MinStrategies {
		return domain.ConsensusSignal{}, false
	}

	valid := votes[:0:0]
	for _, v := range votes {
		if err := checkSignal(v.signal); err != nil {
			b.log.Warn("skipping malformed signal",
				"symbol", symbol, "strategy", v.strategy, "error", err)
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) < b.cfg.MinStrategies {
		return domain.ConsensusSignal{}, false
	}

	majority, count := majorityType(valid)
	if majority == domain.SignalHold {
		return domain.ConsensusSignal{}, false
	}

	total := len(valid)
	agreement := float64(count) / float64(total)
	if agreement < 0.5 {
		return domain.ConsensusSignal{}, false
	}

	agreeing := make([]domain.Signal, 0, count)
	for _, v := range valid {
		if v.signal.Type == majority {
			agreeing = append(agreeing, v.signal)
		}
	}

	confidence := b.weightedConfidence(agreeing)
	score := compositeScore(confidence, agreement, count)
	if score < b.cfg.ScoreFloor {
		return domain.ConsensusSignal{}, false
	}

	entries := make([]float64, len(agreeing))
	targets := make([]float64, len(agreeing))
	stops := make([]float64, len(agreeing))
	for i, s := range agreeing {
		entries[i] = s.EntryPrice
		targets[i] = s.TargetPrice
		stops[i] = s.StopLoss
	}

	return domain.ConsensusSignal{
		Symbol:               symbol,
		Type:                 majority,
		ConsensusConfidence:  confidence,
		AgreementRatio:       agreement,
		SupportingStrategies: count,
		TotalStrategies:      total,
		EntryPrice:           median(entries),
		TargetPrice:          median(targets),
		StopLoss:             median(stops),
		CompositeScore:       score,
		QualityTier:          b.tier(score),
		GeneratedAt:          time.Now().UTC(),
	}, true
}

// checkSignal rejects signals the builder cannot score.
func checkSignal(s domain.Signal) error {
	switch s.Type {
	case domain.SignalBuy, domain.SignalSell, domain.SignalHold:
	default:
		return fmt.Errorf("unknown signal type %q", s.Type)
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", s.Confidence)
	}
	if s.EntryPrice < 0 || s.TargetPrice < 0 || s.StopLoss < 0 {
		return errors.New("negative price level")
	}
	return nil
}

// majorityType returns the most voted signal type and its count. On a
// count tie the direction seen earliest in the (alphabetically ordered)
// vote list wins.
func majorityType(votes []vote) (domain.SignalType, int) {
	counts := make(map[domain.SignalType]int, 3)
	firstSeen := make(map[domain.SignalType]int, 3)
	for i, v := range votes {
		if _, ok := firstSeen[v.signal.Type]; !ok {
			firstSeen[v.signal.Type] = i
		}
		counts[v.signal.Type]++
	}

	var best domain.SignalType
	bestCount := -1
	for _, t := range []domain.SignalType{domain.SignalBuy, domain.SignalSell, domain.SignalHold} {
		c, ok := counts[t]
		if !ok {
			continue
		}
		if c > bestCount || (c == bestCount && firstSeen[t] < firstSeen[best]) {
			best, bestCount = t, c
		}
	}
	return best, bestCount
}

// weightedConfidence averages the agreeing signals' own confidences,
// weighted per strategy. Zero total weight falls back to 0.5.
func (b *Builder) weightedConfidence(agreeing []domain.Signal) float64 {
	var weighted, total float64
	for _, s := range agreeing {
		w, ok := b.cfg.Weights[s.Strategy]
		if !ok {
			w = b.cfg.DefaultWeight
		}
		weighted += s.Confidence * w
		total += w
	}
	if total == 0 {
		return 0.5
	}
	return math.Min(weighted/total, 1.0)
}

// compositeScore blends confidence, agreement, and breadth of support.
func compositeScore(confidence, agreement float64, supporting int) float64 {
	breadth := math.Min(float64(supporting)/10.0, 1.0)
	return math.Min(0.4*confidence+0.3*agreement+0.3*breadth, 1.0)
}

func (b *Builder) tier(score float64) domain.QualityTier {
	switch {
	case score >= b.cfg.HighThreshold:
		return domain.TierHigh
	case score >= b.cfg.MediumThreshold:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// median returns the middle value of vs, averaging the two middle values
// for even-length input. Missing levels arrive as 0 and participate as 0.
func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	s := make([]float64, len(vs))
	copy(s, vs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

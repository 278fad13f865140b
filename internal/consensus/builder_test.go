package consensus

import (
	"math"
	"testing"

	"nivesh/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Weights = map[string]float64{
		"alpha": 0.15,
		"beta":  0.12,
		"gamma": 0.13,
	}
	return cfg
}

func buySignal(strategy, symbol string, confidence, entry, target, stop float64) domain.Signal {
	return domain.Signal{
		Symbol:      symbol,
		Strategy:    strategy,
		Type:        domain.SignalBuy,
		Confidence:  confidence,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
	}
}

func signalMap(signals ...domain.Signal) map[string]map[string]domain.Signal {
	all := make(map[string]map[string]domain.Signal)
	for _, s := range signals {
		if all[s.Strategy] == nil {
			all[s.Strategy] = make(map[string]domain.Signal)
		}
		all[s.Strategy][s.Symbol] = s
	}
	return all
}

func TestBuildUnanimousBuy(t *testing.T) {
	b, err := NewBuilder(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	all := signalMap(
		buySignal("alpha", "ABC", 0.8, 100, 110, 95),
		buySignal("beta", "ABC", 0.6, 102, 112, 96),
		buySignal("gamma", "ABC", 0.9, 98, 108, 94),
	)

	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Build returned %d signals, want 1", len(got))
	}

	cs := got[0]
	if cs.Symbol != "ABC" || cs.Type != domain.SignalBuy {
		t.Errorf("got %s/%s, want ABC/buy", cs.Symbol, cs.Type)
	}
	if cs.AgreementRatio != 1.0 {
		t.Errorf("AgreementRatio = %v, want 1.0", cs.AgreementRatio)
	}
	if cs.SupportingStrategies != 3 || cs.TotalStrategies != 3 {
		t.Errorf("supporting/total = %d/%d, want 3/3",
			cs.SupportingStrategies, cs.TotalStrategies)
	}
	if cs.EntryPrice != 100 {
		t.Errorf("EntryPrice = %v, want 100 (median of 100/102/98)", cs.EntryPrice)
	}
	if cs.TargetPrice != 110 || cs.StopLoss != 95 {
		t.Errorf("target/stop = %v/%v, want 110/95", cs.TargetPrice, cs.StopLoss)
	}

	// Weighted mean: (0.8*0.15 + 0.6*0.12 + 0.9*0.13) / 0.40 = 0.7725.
	if math.Abs(cs.ConsensusConfidence-0.7725) > 1e-9 {
		t.Errorf("ConsensusConfidence = %v, want 0.7725", cs.ConsensusConfidence)
	}
	// 0.4*0.7725 + 0.3*1.0 + 0.3*(3/10) = 0.699.
	if math.Abs(cs.CompositeScore-0.699) > 1e-9 {
		t.Errorf("CompositeScore = %v, want 0.699", cs.CompositeScore)
	}
	if cs.QualityTier != domain.TierMedium {
		t.Errorf("QualityTier = %v, want medium", cs.QualityTier)
	}
}

func TestBuildDropsUnderMinStrategies(t *testing.T) {
	b, _ := NewBuilder(testConfig(), nil)

	all := signalMap(
		buySignal("alpha", "XYZ", 0.9, 50, 60, 45),
		buySignal("beta", "XYZ", 0.9, 50, 60, 45),
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("symbol with 2 strategies should be excluded, got %d signals", len(got))
	}
}

func TestBuildDropsLowAgreement(t *testing.T) {
	b, _ := NewBuilder(testConfig(), nil)

	sell := buySignal("beta", "DEF", 0.9, 100, 90, 105)
	sell.Type = domain.SignalSell
	hold := buySignal("gamma", "DEF", 0.9, 0, 0, 0)
	hold.Type = domain.SignalHold

	all := signalMap(
		buySignal("alpha", "DEF", 0.9, 100, 110, 95),
		sell,
		hold,
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// 1-1-1 three-way split: majority count 1 of 3 = 0.33 agreement.
	if len(got) != 0 {
		t.Errorf("agreement below 0.5 should emit nothing, got %d signals", len(got))
	}
}

func TestBuildDropsHoldMajority(t *testing.T) {
	b, _ := NewBuilder(testConfig(), nil)

	var signals []domain.Signal
	for _, strat := range []string{"alpha", "beta", "gamma"} {
		s := buySignal(strat, "GHI", 0.9, 0, 0, 0)
		s.Type = domain.SignalHold
		signals = append(signals, s)
	}
	got, err := b.Build(signalMap(signals...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("all-hold symbol should emit nothing, got %d signals", len(got))
	}
}

func TestBuildTieBreaksAlphabetically(t *testing.T) {
	cfg := testConfig()
	cfg.Weights["delta"] = 0.15
	b, _ := NewBuilder(cfg, nil)

	sellB := buySignal("beta", "TIE", 0.9, 100, 90, 105)
	sellB.Type = domain.SignalSell
	sellD := buySignal("delta", "TIE", 0.9, 100, 90, 105)
	sellD.Type = domain.SignalSell

	all := signalMap(
		buySignal("alpha", "TIE", 0.9, 100, 110, 95),
		buySignal("gamma", "TIE", 0.9, 100, 110, 95),
		sellB,
		sellD,
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Build returned %d signals, want 1", len(got))
	}
	// 2-2 tie: "alpha" sorts before "beta", so buy wins.
	if got[0].Type != domain.SignalBuy {
		t.Errorf("tie broke to %s, want buy (alphabetically first strategy)", got[0].Type)
	}
	if got[0].AgreementRatio != 0.5 {
		t.Errorf("AgreementRatio = %v, want 0.5", got[0].AgreementRatio)
	}
}

func TestBuildSkipsMalformedSignal(t *testing.T) {
	b, _ := NewBuilder(testConfig(), nil)

	bad := buySignal("gamma", "JKL", math.NaN(), 100, 110, 95)
	all := signalMap(
		buySignal("alpha", "JKL", 0.8, 100, 110, 95),
		buySignal("beta", "JKL", 0.8, 100, 110, 95),
		bad,
		buySignal("alpha", "MNO", 0.8, 10, 12, 9),
		buySignal("beta", "MNO", 0.8, 10, 12, 9),
		buySignal("gamma", "MNO", 0.8, 10, 12, 9),
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// JKL falls under min strategies once the bad signal is dropped;
	// MNO is unaffected.
	if len(got) != 1 || got[0].Symbol != "MNO" {
		t.Fatalf("got %v, want exactly MNO", got)
	}
}

func TestBuildInvariants(t *testing.T) {
	b, _ := NewBuilder(testConfig(), nil)

	all := signalMap(
		buySignal("alpha", "AAA", 0.9, 100, 110, 95),
		buySignal("beta", "AAA", 0.7, 101, 111, 96),
		buySignal("gamma", "AAA", 0.5, 99, 109, 94),
		buySignal("alpha", "BBB", 0.95, 200, 220, 190),
		buySignal("beta", "BBB", 0.9, 201, 221, 191),
		buySignal("gamma", "BBB", 0.85, 199, 219, 189),
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, cs := range got {
		if cs.AgreementRatio < 0.5 || cs.AgreementRatio > 1.0 {
			t.Errorf("%s: AgreementRatio %v out of [0.5,1]", cs.Symbol, cs.AgreementRatio)
		}
		if cs.CompositeScore < 0.45 || cs.CompositeScore > 1.0 {
			t.Errorf("%s: CompositeScore %v out of [0.45,1]", cs.Symbol, cs.CompositeScore)
		}
		if cs.SupportingStrategies > cs.TotalStrategies {
			t.Errorf("%s: supporting %d > total %d",
				cs.Symbol, cs.SupportingStrategies, cs.TotalStrategies)
		}
		if cs.TotalStrategies < 3 {
			t.Errorf("%s: total %d below min", cs.Symbol, cs.TotalStrategies)
		}
	}
	// Sorted by score descending.
	for i := 1; i < len(got); i++ {
		if got[i].CompositeScore > got[i-1].CompositeScore {
			t.Errorf("results not sorted by score: %v before %v",
				got[i-1].CompositeScore, got[i].CompositeScore)
		}
	}
}

func TestBuildCapsOutput(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSignals = 2
	b, _ := NewBuilder(cfg, nil)

	var signals []domain.Signal
	for _, sym := range []string{"S1", "S2", "S3", "S4"} {
		for _, strat := range []string{"alpha", "beta", "gamma"} {
			signals = append(signals, buySignal(strat, sym, 0.9, 100, 110, 95))
		}
	}
	got, err := b.Build(signalMap(signals...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d signals, want cap of 2", len(got))
	}
}

func TestBuildZeroWeightFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Weights = map[string]float64{"alpha": 0, "beta": 0, "gamma": 0}
	cfg.DefaultWeight = 0
	b, _ := NewBuilder(cfg, nil)

	all := signalMap(
		buySignal("alpha", "ZW", 0.9, 100, 110, 95),
		buySignal("beta", "ZW", 0.9, 100, 110, 95),
		buySignal("gamma", "ZW", 0.9, 100, 110, 95),
	)
	got, err := b.Build(all)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Build returned %d signals, want 1", len(got))
	}
	if got[0].ConsensusConfidence != 0.5 {
		t.Errorf("zero total weight: confidence = %v, want 0.5", got[0].ConsensusConfidence)
	}
}

func TestNewBuilderRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero min strategies", func(c *Config) { c.MinStrategies = 0 }},
		{"inverted thresholds", func(c *Config) { c.HighThreshold = 0.5; c.MediumThreshold = 0.9 }},
		{"zero floor", func(c *Config) { c.ScoreFloor = 0 }},
		{"zero max signals", func(c *Config) { c.MaxSignals = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mod(&cfg)
			if _, err := NewBuilder(cfg, nil); err == nil {
				t.Error("expected config error, got nil")
			}
		})
	}
}

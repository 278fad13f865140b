package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestZeroValues(t *testing.T) {
	bar := Bar{}
	if bar.Symbol != "" || !bar.Timestamp.IsZero() {
		t.Error("expected empty zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 || bar.Volume != 0 {
		t.Error("expected zero OHLCV for zero-value Bar")
	}

	pos := Position{}
	if pos.Quantity != 0 || pos.AvgPrice != 0 || pos.TotalCost != 0 {
		t.Error("expected zero quantities for zero-value Position")
	}

	tr := Trade{}
	if tr.ID != "" || tr.Action != "" || tr.ExitReason != "" {
		t.Error("expected empty fields for zero-value Trade")
	}
}

func TestEnumValues(t *testing.T) {
	if SignalBuy != "buy" || SignalSell != "sell" || SignalHold != "hold" {
		t.Error("SignalType constants have unexpected values")
	}
	if TierHigh != "high" || TierMedium != "medium" || TierLow != "low" {
		t.Error("QualityTier constants have unexpected values")
	}
	if ActionBuy != "buy" || ActionSell != "sell" {
		t.Error("TradeAction constants have unexpected values")
	}
	if MarketNSE != "nse" {
		t.Errorf("MarketNSE = %q, want %q", MarketNSE, "nse")
	}
}

func TestConsensusSignalJSON(t *testing.T) {
	cs := ConsensusSignal{
		Symbol:               "RELIANCE",
		Type:                 SignalBuy,
		ConsensusConfidence:  0.79,
		AgreementRatio:       1.0,
		SupportingStrategies: 3,
		TotalStrategies:      3,
		EntryPrice:           100,
		TargetPrice:          110,
		StopLoss:             95,
		CompositeScore:       0.706,
		QualityTier:          TierMedium,
		GeneratedAt:          time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(cs)
	if err != nil {
		t.Fatalf("marshalling ConsensusSignal: %v", err)
	}

	var got ConsensusSignal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshalling ConsensusSignal: %v", err)
	}
	if got != cs {
		t.Errorf("round trip mismatch:\n  got  %+v\n  want %+v", got, cs)
	}
}

func TestSignalMetadataOpaque(t *testing.T) {
	sig := Signal{
		Symbol:     "TCS",
		Strategy:   "momentum",
		Type:       SignalBuy,
		Confidence: 0.85,
		Metadata:   map[string]any{"rsi": 61.2, "growth_pct": 18.0},
	}
	data, err := json.Marshal(sig)
	if err != nil {
		t.Fatalf("marshalling Signal: %v", err)
	}
	var got Signal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshalling Signal: %v", err)
	}
	if got.Metadata["rsi"] != 61.2 {
		t.Errorf("metadata rsi = %v, want 61.2", got.Metadata["rsi"])
	}
}

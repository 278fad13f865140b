package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nivesh/internal/app"
)

func main() {
	_ = godotenv.Load()

	a, err := app.New(os.Getenv("NIVESH_CONFIG"))
	if err != nil {
		log.Fatalf("failed to wire service: %v", err)
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	signals, err := a.Service.Scan(ctx)
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	if len(signals) == 0 {
		fmt.Println("no consensus signals today")
		return
	}

	fmt.Printf("%-12s %-5s %-6s %6s %6s %9s %9s %9s %6s\n",
		"SYMBOL", "TYPE", "TIER", "SCORE", "AGREE", "ENTRY", "TARGET", "STOP", "VOTES")
	for _, cs := range signals {
		fmt.Printf("%-12s %-5s %-6s %6.3f %6.2f %9.2f %9.2f %9.2f %3d/%-3d\n",
			cs.Symbol, cs.Type, cs.QualityTier, cs.CompositeScore, cs.AgreementRatio,
			cs.EntryPrice, cs.TargetPrice, cs.StopLoss,
			cs.SupportingStrategies, cs.TotalStrategies)
	}
}

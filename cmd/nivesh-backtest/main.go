package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nivesh/internal/app"
	"nivesh/internal/engine"
)

func main() {
	_ = godotenv.Load()

	var (
		startFlag   = flag.String("start", "", "start date (YYYY-MM-DD, required)")
		endFlag     = flag.String("end", "", "end date (YYYY-MM-DD, required)")
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols (default: configured universe)")
		capitalFlag = flag.Float64("capital", 0, "initial capital (default: configured)")
	)
	flag.Parse()

	if *startFlag == "" || *endFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}

	a, err := app.New(os.Getenv("NIVESH_CONFIG"))
	if err != nil {
		log.Fatalf("failed to wire service: %v", err)
	}
	defer a.Close()

	req := engine.BacktestRequest{
		StartDate:      start,
		EndDate:        end,
		InitialCapital: *capitalFlag,
	}
	if *symbolsFlag != "" {
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Symbols = append(req.Symbols, strings.ToUpper(s))
			}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := a.Service.RunBacktest(ctx, req)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	perf := result.Performance
	fmt.Printf("run            %s\n", result.RunID)
	fmt.Printf("period         %s .. %s\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	fmt.Printf("capital        %.2f -> %.2f\n", result.InitialCapital, result.FinalCapital)
	fmt.Printf("total return   %+.2f%%\n", perf.TotalReturn*100)
	fmt.Printf("annualized     %+.2f%%\n", perf.AnnualizedReturn*100)
	fmt.Printf("volatility     %.2f%%\n", perf.Volatility*100)
	fmt.Printf("sharpe         %.2f\n", perf.SharpeRatio)
	fmt.Printf("max drawdown   %.2f%%\n", perf.MaxDrawdown*100)
	fmt.Printf("trades         %d (%d paired, win rate %.1f%%)\n",
		perf.TotalTrades, perf.PairedTrades, perf.WinRate*100)
}

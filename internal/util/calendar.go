package util

import (
	"time"

	"nivesh/internal/domain"
)

// fixedHolidays are NSE holidays that fall on the same date every year.
// Festival holidays that move with the lunar calendar (Diwali, Holi, Eid)
// are supplied per year via AddHolidays.
var fixedHolidays = []struct {
	month time.Month
	day   int
}{
	{time.January, 26},  // Republic Day
	{time.May, 1},       // Maharashtra Day
	{time.August, 15},   // Independence Day
	{time.October, 2},   // Gandhi Jayanti
	{time.December, 25}, // Christmas
}

// TradingCalendar answers whether a given date is a trading day for a
// market. Weekends and known holidays are closed; everything else is open.
type TradingCalendar struct {
	market   domain.Market
	holidays map[string]struct{} // "2006-01-02" keys
}

// NewTradingCalendar creates a TradingCalendar for the given market with
// the fixed-date holiday set preloaded.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	return &TradingCalendar{
		market:   market,
		holidays: make(map[string]struct{}),
	}
}

// AddHolidays registers additional closed dates, typically the year's
// movable festival holidays published by the exchange.
func (tc *TradingCalendar) AddHolidays(dates ...time.Time) {
	for _, d := range dates {
		tc.holidays[d.Format("2006-01-02")] = struct{}{}
	}
}

// IsTradingDay reports whether the market trades on the given date.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	for _, h := range fixedHolidays {
		if t.Month() == h.month && t.Day() == h.day {
			return false
		}
	}
	_, closed := tc.holidays[t.Format("2006-01-02")]
	return !closed
}

// NextTradingDay returns the first trading day strictly after t.
func (tc *TradingCalendar) NextTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !tc.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDaysBetween counts the trading days in [start, end].
func (tc *TradingCalendar) TradingDaysBetween(start, end time.Time) int {
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if tc.IsTradingDay(d) {
			n++
		}
	}
	return n
}

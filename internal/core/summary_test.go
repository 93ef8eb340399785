package core

import "testing"

func TestSummarizeRateSplit(t *testing.T) {
	entries := []TimeEntry{
		NewEntry{Date: "2024-01-01", Nafees: intp(30), Waqas: intp(20)}.Build("a"),
		NewEntry{Date: "2024-01-02", Cheetan: intp(40), Nadeem: intp(10)}.Build("b"),
	}
	s := Summarize(entries, Settings{ID: "s", BaseAmount: 10000})

	if s.Totals.TotalMinutes != 100 {
		t.Fatalf("TotalMinutes = %d, want 100", s.Totals.TotalMinutes)
	}
	if s.PerMinuteRate != 100 {
		t.Fatalf("PerMinuteRate = %v, want 100", s.PerMinuteRate)
	}
	if s.PerMinuteRateDisplay != "100.000" {
		t.Fatalf("PerMinuteRateDisplay = %q, want 100.000", s.PerMinuteRateDisplay)
	}
	want := PersonAmounts{Nafees: 3000, Waqas: 2000, Cheetan: 4000, Nadeem: 1000}
	if s.PersonPrices != want {
		t.Fatalf("PersonPrices = %+v, want %+v", s.PersonPrices, want)
	}
	if s.TotalPrice != 10000 {
		t.Fatalf("TotalPrice = %d, want 10000", s.TotalPrice)
	}
	rates := PersonAmounts{Nafees: 333, Waqas: 500, Cheetan: 250, Nadeem: 1000}
	if s.PersonRates != rates {
		t.Fatalf("PersonRates = %+v, want %+v", s.PersonRates, rates)
	}
	if s.TotalHours != 1.7 {
		t.Fatalf("TotalHours = %v, want 1.7", s.TotalHours)
	}
	if s.HourlyRate != 6000 {
		t.Fatalf("HourlyRate = %d, want 6000", s.HourlyRate)
	}
	if s.EntryCount != 2 {
		t.Fatalf("EntryCount = %d, want 2", s.EntryCount)
	}
}

func TestSummarizeNoMinutes(t *testing.T) {
	s := Summarize(nil, Settings{BaseAmount: 10000})
	if s.PerMinuteRate != 0 || s.PerMinuteRateDisplay != "0.000" {
		t.Fatalf("expected zero rate, got %v (%q)", s.PerMinuteRate, s.PerMinuteRateDisplay)
	}
	if s.PersonRates != (PersonAmounts{}) || s.PersonPrices != (PersonAmounts{}) {
		t.Fatalf("expected zero person amounts, got %+v %+v", s.PersonRates, s.PersonPrices)
	}
	if s.HourlyRate != 0 || s.TotalHours != 0 {
		t.Fatalf("expected zero hours/hourly rate, got %v %d", s.TotalHours, s.HourlyRate)
	}
}

func TestPerMinuteRateThreeDecimals(t *testing.T) {
	s := Summarize([]TimeEntry{NewEntry{Date: "2024-01-01", Nafees: intp(3)}.Build("a")}, Settings{BaseAmount: 10})
	if s.PerMinuteRateDisplay != "3.333" {
		t.Fatalf("PerMinuteRateDisplay = %q, want 3.333", s.PerMinuteRateDisplay)
	}
}

package core

import (
	"math"
	"strconv"
)

// PersonAmounts maps each person to a whole-number amount.
type PersonAmounts struct {
	Nafees  int64 `json:"nafees"`
	Waqas   int64 `json:"waqas"`
	Cheetan int64 `json:"cheetan"`
	Nadeem  int64 `json:"nadeem"`
}

// Sum returns the total of the four amounts.
func (p PersonAmounts) Sum() int64 {
	return p.Nafees + p.Waqas + p.Cheetan + p.Nadeem
}

// Totals is the per-person minute sum across all entries.
type Totals struct {
	Minutes
	TotalMinutes int `json:"totalMinutes"`
}

// Summary is the rate split derived from every entry and the settings.
type Summary struct {
	EntryCount           int           `json:"entryCount"`
	Totals               Totals        `json:"totals"`
	BaseAmount           float64       `json:"baseAmount"`
	PerMinuteRate        float64       `json:"perMinuteRate"`
	PerMinuteRateDisplay string        `json:"perMinuteRateDisplay"`
	PersonRates          PersonAmounts `json:"personRates"`
	PersonPrices         PersonAmounts `json:"personPrices"`
	TotalPrice           int64         `json:"totalPrice"`
	TotalHours           float64       `json:"totalHours"`
	HourlyRate           int64         `json:"hourlyRate"`
}

// Summarize sums the entries and splits the base amount across their minutes.
// Every division by a zero total yields zero.
func Summarize(entries []TimeEntry, settings Settings) Summary {
	var m Minutes
	for _, e := range entries {
		m = m.Add(e.Minutes)
	}
	total := m.Total()
	base := settings.BaseAmount

	rate := PerMinuteRate(base, total)
	s := Summary{
		EntryCount:           len(entries),
		Totals:               Totals{Minutes: m, TotalMinutes: total},
		BaseAmount:           base,
		PerMinuteRate:        rate,
		PerMinuteRateDisplay: strconv.FormatFloat(rate, 'f', 3, 64),
		PersonRates: PersonAmounts{
			Nafees:  roundDiv(base, m.Nafees),
			Waqas:   roundDiv(base, m.Waqas),
			Cheetan: roundDiv(base, m.Cheetan),
			Nadeem:  roundDiv(base, m.Nadeem),
		},
		PersonPrices: PersonAmounts{
			Nafees:  round(rate * float64(m.Nafees)),
			Waqas:   round(rate * float64(m.Waqas)),
			Cheetan: round(rate * float64(m.Cheetan)),
			Nadeem:  round(rate * float64(m.Nadeem)),
		},
		TotalHours: math.Round(float64(total)/60*10) / 10,
		HourlyRate: round(rate * 60),
	}
	s.TotalPrice = s.PersonPrices.Sum()
	return s
}

// PerMinuteRate divides base across totalMinutes, returning 0 when there are none.
func PerMinuteRate(base float64, totalMinutes int) float64 {
	if totalMinutes <= 0 {
		return 0
	}
	return base / float64(totalMinutes)
}

func roundDiv(base float64, minutes int) int64 {
	if minutes <= 0 {
		return 0
	}
	return round(base / float64(minutes))
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

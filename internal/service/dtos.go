package service

import "time"

type BarCategory struct {
	Name   string  `json:"name"`
	Sum    float64 `json:"sum"`
	CumSum float64 `json:"cumSum"`
	Rank   int     `json:"rank"`
}

type BarSummary struct {
	MaxCumSumCategory string  `json:"maxCumSumCategory"`
	MaxCumSumValue    float64 `json:"maxCumSumValue"`
	Valid             bool    `json:"valid"`
}

type BarKeyframe struct {
	PeriodStart      time.Time     `json:"periodStart"`
	SortedCategories []BarCategory `json:"sortedCategories"`
	Summary          BarSummary    `json:"summary"`
}

// BarRace is every keyframe of one ledger in the bar-race shape.
type BarRace struct {
	Source       string        `json:"source"`
	Rows         int           `json:"rows"`
	InvalidDates int           `json:"invalidDates"`
	Keyframes    []BarKeyframe `json:"keyframes"`
}

type TreeMapChild struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	PrevValue float64 `json:"prevValue"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
}

type TreeMapKeyframe struct {
	PeriodStart time.Time      `json:"periodStart"`
	Value       float64        `json:"value"`
	Children    []TreeMapChild `json:"children"`
}

// TreeMap is every keyframe of one ledger laid out for a width x height area.
type TreeMap struct {
	Source       string            `json:"source"`
	Width        float64           `json:"width"`
	Height       float64           `json:"height"`
	Rows         int               `json:"rows"`
	InvalidDates int               `json:"invalidDates"`
	Keyframes    []TreeMapKeyframe `json:"keyframes"`
}

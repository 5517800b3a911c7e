package models

import "github.com/shopspring/decimal"

const (
	MinScore = 1
	MaxScore = 5
)

// RatingDistribution - число отзывов по каждой оценке от 1 до 5.
type RatingDistribution map[int]int

// RatingSummary - агрегированный рейтинг профессионала.
type RatingSummary struct {
	Average      float64            `json:"average"`
	Total        int                `json:"total"`
	Distribution RatingDistribution `json:"distribution"`
}

// NewRatingSummary строит агрегат из числа отзывов по оценкам.
// Оценки вне 1..5 отбрасываются. Среднее округляется до одного знака, без отзывов оно равно 0.
func NewRatingSummary(counts map[int]int) RatingSummary {
	dist := make(RatingDistribution, MaxScore)
	for score := MinScore; score <= MaxScore; score++ {
		dist[score] = 0
	}

	var total, weighted int64
	for score, n := range counts {
		if score < MinScore || score > MaxScore || n <= 0 {
			continue
		}
		dist[score] += n
		total += int64(n)
		weighted += int64(score * n)
	}

	summary := RatingSummary{Total: int(total), Distribution: dist}
	if total > 0 {
		summary.Average = Round1(decimal.NewFromInt(weighted).Div(decimal.NewFromInt(total)))
	}
	return summary
}

// Round1 округляет до одного знака после запятой, половина уходит вверх.
func Round1(v decimal.Decimal) float64 {
	return v.Round(1).InexactFloat64()
}

// SummaryFromScores - удобная обёртка над NewRatingSummary для списка оценок.
func SummaryFromScores(scores []int) RatingSummary {
	counts := make(map[int]int, MaxScore)
	for _, s := range scores {
		counts[s]++
	}
	return NewRatingSummary(counts)
}

// Percent возвращает долю part от total в процентах, округлённую до целого.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(part) * 100).Div(decimal.NewFromInt(int64(total))).Round(0).IntPart())
}

package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PreferenceProfile — производный профиль предпочтений пользователя.
// Агрегируется из последних завершённых покупок при каждом пересчёте
// эмбеддинга и нигде не хранится отдельно от самого эмбеддинга.
type PreferenceProfile struct {
	CategoryCounts   map[string]int
	AvgAmount        decimal.Decimal // средний чек, в рублях
	TotalAmount      decimal.Decimal // суммарные траты, в рублях
	TransactionCount int
}

// NewPreferenceProfile агрегирует профиль из завершённых транзакций.
func NewPreferenceProfile(transactions []Transaction) *PreferenceProfile {
	counts := make(map[string]int, len(transactions))
	total := decimal.Zero

	for _, t := range transactions {
		counts[t.Category]++
		total = total.Add(decimal.NewFromInt(t.Amount))
	}

	total = total.Div(decimal.NewFromInt(100)) // копейки -> рубли
	avg := decimal.Zero
	if len(transactions) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(transactions))))
	}

	return &PreferenceProfile{
		CategoryCounts:   counts,
		AvgAmount:        avg,
		TotalAmount:      total,
		TransactionCount: len(transactions),
	}
}

// TopCategories возвращает категории профиля в детерминированном порядке:
// по убыванию частоты, при равенстве — по имени.
func (p *PreferenceProfile) TopCategories() []string {
	categories := make([]string, 0, len(p.CategoryCounts))
	for category := range p.CategoryCounts {
		categories = append(categories, category)
	}

	sort.Slice(categories, func(i, j int) bool {
		if p.CategoryCounts[categories[i]] != p.CategoryCounts[categories[j]] {
			return p.CategoryCounts[categories[i]] > p.CategoryCounts[categories[j]]
		}
		return categories[i] < categories[j]
	})

	return categories
}

// AttributeRecord собирает агрегат для embedding-провайдера.
func (p *PreferenceProfile) AttributeRecord() AttributeRecord {
	counts := make(map[string]any, len(p.CategoryCounts))
	for category, n := range p.CategoryCounts {
		counts[category] = n
	}

	return AttributeRecord{
		"categories":  counts,
		"avg_amount":  p.AvgAmount.InexactFloat64(),
		"total_spent": p.TotalAmount.InexactFloat64(),
	}
}

package services

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	apperrors "quid/internal/errors"
	"quid/internal/models"
)

// analyticsService computes spending aggregates. Aggregation happens in
// Go rather than SQL so the grouping rules (dangling categories fold
// into "Other", split expenses count the user's share only) live in one
// place and behave identically on every database backend.
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB) AnalyticsServicer {
	return &analyticsService{db: db}
}

// SpendingByCategory totals expense transactions per category over
// [from, to], largest first. Transactions without a category, or whose
// category has since been deleted, are grouped under "Other".
func (s *analyticsService) SpendingByCategory(userID string, from, to time.Time) ([]CategorySpend, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ? AND type = ? AND date >= ? AND date <= ?",
		userID, models.TransactionTypeExpense, from, to).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := s.db.Where("user_id = ?", userID).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	names := make(map[string]string, len(categories))
	for i := range categories {
		names[categories[i].ID] = categories[i].Name
	}

	type bucket struct {
		id    *string
		total int64
		count int
	}
	buckets := make(map[string]*bucket)
	for i := range transactions {
		t := &transactions[i]
		key := "other"
		var id *string
		if t.CategoryID != nil {
			if _, ok := names[*t.CategoryID]; ok {
				key = *t.CategoryID
				id = t.CategoryID
			}
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: id}
			buckets[key] = b
		}
		b.total += t.Amount
		b.count++
	}

	out := make([]CategorySpend, 0, len(buckets))
	for key, b := range buckets {
		name := "Other"
		if b.id != nil {
			name = names[key]
		}
		out = append(out, CategorySpend{
			CategoryID:   b.id,
			CategoryName: name,
			Total:        b.total,
			Count:        b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

// MonthlySummary totals income and expenses per calendar month of the
// given year. Transfers move money between the user's own accounts and
// are excluded from both sides.
func (s *analyticsService) MonthlySummary(userID string, year int) ([]MonthlyTotal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	var transactions []models.Transaction
	if err := s.db.Where("user_id = ? AND date >= ? AND date < ? AND type IN ?",
		userID, from, to, []models.TransactionType{models.TransactionTypeIncome, models.TransactionTypeExpense}).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := make([]MonthlyTotal, 12)
	for m := 0; m < 12; m++ {
		totals[m].Month = fmt.Sprintf("%04d-%02d", year, m+1)
	}
	for i := range transactions {
		t := &transactions[i]
		m := int(t.Date.Month()) - 1
		switch t.Type {
		case models.TransactionTypeIncome:
			totals[m].Income += t.Amount
		case models.TransactionTypeExpense:
			totals[m].Expense += t.Amount
		}
	}
	for m := range totals {
		totals[m].Net = totals[m].Income - totals[m].Expense
	}
	return totals, nil
}

package storage

import (
	"time"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// Starter dataset written the first time a collection is read.

func seedTransactions(now time.Time) []core.Transaction {
	return []core.Transaction{
		{
			ID:          "1",
			Date:        core.DayKey(now),
			Time:        "14:30",
			Description: "Weekly Groceries",
			Vendor:      "Whole Foods",
			Amount:      decimal.RequireFromString("156.42"),
			Category:    core.Groceries,
			Frequency:   core.Weekly,
			IsRecurring: true,
		},
		{
			ID:          "2",
			Date:        core.DayKey(now.AddDate(0, 0, -2)),
			Time:        "18:45",
			Description: "Uber Ride",
			Vendor:      "Uber",
			Amount:      decimal.RequireFromString("24.50"),
			Category:    core.Transportation,
			Frequency:   core.OneTime,
		},
		{
			ID:          "3",
			Date:        "2024-05-01",
			Time:        "09:00",
			Description: "Rent Payment",
			Vendor:      "Apartment Corp",
			Amount:      decimal.NewFromInt(2200),
			Category:    core.Housing,
			Frequency:   core.Monthly,
			IsRecurring: true,
		},
		{
			ID:          "4",
			Date:        "2024-05-15",
			Time:        "10:00",
			Description: "Netflix Subscription",
			Vendor:      "Netflix",
			Amount:      decimal.RequireFromString("15.99"),
			Category:    core.Entertainment,
			Frequency:   core.Monthly,
			IsRecurring: true,
		},
		{
			ID:          "5",
			Date:        "2024-05-20",
			Time:        "06:30",
			Description: "Gym Membership",
			Vendor:      "Gold's Gym",
			Amount:      decimal.NewFromInt(45),
			Category:    core.HealthFitness,
			Frequency:   core.Monthly,
			IsRecurring: true,
		},
	}
}

func seedBudgets(now time.Time) []core.MonthlyBudget {
	return []core.MonthlyBudget{{
		Month: core.MonthKey(now),
		Categories: map[core.Category]decimal.Decimal{
			core.Housing:        decimal.NewFromInt(2200),
			core.Groceries:      decimal.NewFromInt(600),
			core.FoodDining:     decimal.NewFromInt(400),
			core.Entertainment:  decimal.NewFromInt(200),
			core.Transportation: decimal.NewFromInt(300),
		},
	}}
}

func seedSavings(time.Time) []core.SavingsProject {
	return []core.SavingsProject{
		{
			ID:               "s1",
			Name:             "Summer Vacation",
			Amount:           decimal.NewFromInt(200),
			Frequency:        core.Monthly,
			DeductFromBudget: true,
			Memo:             "Trip to Italy in July",
		},
		{
			ID:               "s2",
			Name:             "New Car Fund",
			Amount:           decimal.NewFromInt(50),
			Frequency:        core.Weekly,
			DeductFromBudget: false,
			Memo:             "Saving for a Tesla",
		},
	}
}

func seedProfile(time.Time) core.UserProfile {
	return core.NewProfile()
}

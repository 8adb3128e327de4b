package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-production-engine/internal/entity"
	"lab-production-engine/internal/service"
)

func newForecaster(lab *fakeLab) *service.InventoryForecaster {
	return service.NewInventoryForecaster(service.ForecasterDeps{
		Jobs:      lab,
		Materials: lab,
		History:   lab,
		LeadTimes: map[string]int{"straumann": 14},
		Now:       clock,
	})
}

func forecastFor(r *entity.ForecastReport, name string) entity.ForecastResult {
	for _, f := range r.Forecasts {
		if f.MaterialName == name {
			return f
		}
	}
	return entity.ForecastResult{}
}

// dailyRecords spreads qty per day over the given days before now.
func dailyRecords(name string, qty int, days int) []entity.ConsumptionRecord {
	var out []entity.ConsumptionRecord
	for i := 0; i < days; i++ {
		out = append(out, entity.ConsumptionRecord{
			MaterialName: name,
			Quantity:     qty,
			ConsumedAt:   fixedNow.Add(-time.Duration(i)*24*time.Hour - 12*time.Hour),
		})
	}
	return out
}

func TestForecast_ZeroStockIsCritical(t *testing.T) {
	ti := material("titanium", 0, 10)
	ti.UnitCost = 20
	ti.SupplierID = "straumann"
	lab := &fakeLab{materials: []entity.Material{ti}}

	report, err := newForecaster(lab).Forecast(context.Background(), service.ForecastRequest{})
	require.NoError(t, err)

	fc := forecastFor(report, "titanium")
	assert.Equal(t, 0, fc.DaysUntilDepletion)
	assert.Equal(t, entity.SeverityCritical, fc.UrgencyLevel)
	assert.Equal(t, 150.0, fc.PredictedUsage)
	assert.Equal(t, 225, fc.RecommendedOrderQty)
	assert.Equal(t, 4500.0, fc.EstimatedCost)
	assert.Equal(t, 14, fc.SupplierLeadTimeDays)

	require.Len(t, report.ReorderSuggestions, 1)
	s := report.ReorderSuggestions[0]
	assert.Equal(t, "straumann", s.SupplierID)
	assert.True(t, s.OrderBy.Equal(fixedNow))

	require.NotNil(t, report.Analytics.NextCriticalShortage)
	assert.Equal(t, "titanium", report.Analytics.NextCriticalShortage.MaterialName)
	assert.Equal(t, 4500.0, report.Analytics.TotalPredictedCost)
}

func TestForecast_DefaultsHorizonAndRejectsOutOfRange(t *testing.T) {
	f := newForecaster(&fakeLab{materials: []entity.Material{material("wax", 100, 10)}})

	report, err := f.Forecast(context.Background(), service.ForecastRequest{})
	require.NoError(t, err)
	assert.Equal(t, service.DefaultHorizonDays, report.HorizonDays)

	for _, h := range []int{-1, 366} {
		_, err := f.Forecast(context.Background(), service.ForecastRequest{HorizonDays: h})
		assert.ErrorIs(t, err, service.ErrInvalidInput, "horizon=%d", h)
	}
}

func TestForecast_SnapshotFailureIsFatal(t *testing.T) {
	for name, lab := range map[string]*fakeLab{
		"materials": {materialsErr: errors.New("down")},
		"jobs":      {jobsErr: errors.New("down")},
		"history":   {historyErr: errors.New("down")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newForecaster(lab).Forecast(context.Background(), service.ForecastRequest{HorizonDays: 7})
			assert.ErrorIs(t, err, service.ErrSnapshot)
		})
	}
}

func TestForecast_IsDeterministic(t *testing.T) {
	lab := &fakeLab{
		materials:   []entity.Material{material("resin", 40, 10), material("zirconia", 12, 5)},
		consumption: append(dailyRecords("resin", 2, 30), dailyRecords("resin", 3, 10)...),
	}
	f := newForecaster(lab)

	first, err := f.Forecast(context.Background(), service.ForecastRequest{HorizonDays: 14})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := f.Forecast(context.Background(), service.ForecastRequest{HorizonDays: 14})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestForecast_PendingDemandAddsToUsage(t *testing.T) {
	j := pendingJob("J", fixedNow)
	j.MaterialRequirements = map[string]int{"wax": 90}
	lab := &fakeLab{
		jobs:      []entity.ProductionJob{j},
		materials: []entity.Material{material("wax", 100, 10)},
	}

	report, err := newForecaster(lab).Forecast(context.Background(), service.ForecastRequest{HorizonDays: 10})
	require.NoError(t, err)

	fc := forecastFor(report, "wax")
	assert.Equal(t, 110.0, fc.PredictedUsage)
	assert.Equal(t, 10.0, fc.PredictedShortage)
	assert.Equal(t, 50, fc.DaysUntilDepletion)
	assert.Equal(t, entity.SeverityHigh, fc.UrgencyLevel)
}

func TestForecast_SortsByUrgency(t *testing.T) {
	lab := &fakeLab{materials: []entity.Material{
		material("plenty", 1000, 10),
		material("titanium", 0, 10),
		material("wax", 25, 5),
	}}

	report, err := newForecaster(lab).Forecast(context.Background(), service.ForecastRequest{HorizonDays: 1})
	require.NoError(t, err)

	require.Len(t, report.Forecasts, 3)
	assert.Equal(t, "titanium", report.Forecasts[0].MaterialName)
	assert.Equal(t, "wax", report.Forecasts[1].MaterialName)
	assert.Equal(t, entity.SeverityMedium, report.Forecasts[1].UrgencyLevel)
	assert.Equal(t, "plenty", report.Forecasts[2].MaterialName)
	assert.Equal(t, 2, report.Analytics.MaterialsAtRisk)
	assert.Equal(t, 3, report.Analytics.MaterialsAnalyzed)
}

func TestUsagePatterns_FromHistory(t *testing.T) {
	mats := []entity.Material{{ID: uuid.New(), Name: "resin"}}

	steady := service.UsagePatterns(mats, dailyRecords("resin", 2, 30), fixedNow, 30)["resin"]
	assert.True(t, steady.FromHistory)
	assert.Equal(t, 2.0, steady.DailyUsage)
	assert.Zero(t, steady.Trend)
	assert.Zero(t, steady.Volatility)

	// only the recent half has consumption
	rising := service.UsagePatterns(mats, dailyRecords("resin", 4, 15), fixedNow, 30)["resin"]
	assert.Equal(t, 2.0, rising.DailyUsage)
	assert.Equal(t, 2.0, rising.Trend)
	assert.Equal(t, 1.0, rising.Volatility)
}

func TestUsagePatterns_NameHeuristicWithoutHistory(t *testing.T) {
	mats := []entity.Material{
		{Name: "Titanium Grade 5"},
		{Name: "Ti6Al4V blank"},
		{Name: "Zirconia disc"},
		{Name: "Anti-slip wax"},
	}
	p := service.UsagePatterns(mats, nil, fixedNow, 30)

	assert.Equal(t, 5.0, p["Titanium Grade 5"].DailyUsage)
	assert.Equal(t, 5.0, p["Ti6Al4V blank"].DailyUsage)
	assert.Equal(t, 3.0, p["Zirconia disc"].DailyUsage)
	assert.Equal(t, 2.0, p["Anti-slip wax"].DailyUsage)
	assert.False(t, p["Zirconia disc"].FromHistory)
	assert.Equal(t, 0.3, p["Zirconia disc"].Volatility)
}

package entity

import "time"

// UsagePattern is derived per forecaster run and never persisted.
type UsagePattern struct {
	DailyUsage  float64 `json:"daily_usage"`
	Trend       float64 `json:"trend"`
	Volatility  float64 `json:"volatility"`
	FromHistory bool    `json:"from_history"`
}

type ForecastResult struct {
	MaterialName         string   `json:"material_name"`
	CurrentStock         int      `json:"current_stock"`
	PredictedUsage       float64  `json:"predicted_usage"`
	PredictedShortage    float64  `json:"predicted_shortage"`
	DaysUntilDepletion   int      `json:"days_until_depletion"`
	ConfidenceLevel      float64  `json:"confidence_level"`
	UrgencyLevel         Severity `json:"urgency_level"`
	RecommendedOrderQty  int      `json:"recommended_order_quantity"`
	EstimatedCost        float64  `json:"estimated_cost"`
	SupplierLeadTimeDays int      `json:"supplier_lead_time"`
}

type ReorderSuggestion struct {
	MaterialName  string    `json:"material_name"`
	SupplierID    string    `json:"supplier_id"`
	Quantity      int       `json:"quantity"`
	EstimatedCost float64   `json:"estimated_cost"`
	Urgency       Severity  `json:"urgency"`
	LeadTimeDays  int       `json:"lead_time_days"`
	OrderBy       time.Time `json:"order_by"`
}

type ShortageETA struct {
	MaterialName string `json:"material_name"`
	Days         int    `json:"days"`
}

type ForecastAnalytics struct {
	MaterialsAnalyzed     int          `json:"materials_analyzed"`
	MaterialsAtRisk       int          `json:"materials_at_risk"`
	TotalPredictedCost    float64      `json:"total_predicted_cost"`
	NextCriticalShortage  *ShortageETA `json:"next_critical_shortage,omitempty"`
	ForecastAccuracyScore int          `json:"forecast_accuracy_score"`
	Recommendations       []string     `json:"recommendations"`
}

type ForecastReport struct {
	HorizonDays        int                 `json:"horizon_days"`
	Forecasts          []ForecastResult    `json:"forecasts"`
	ReorderSuggestions []ReorderSuggestion `json:"reorder_suggestions"`
	Analytics          ForecastAnalytics   `json:"analytics"`
}

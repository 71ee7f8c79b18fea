package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBDriver  string // "postgres" or "sqlite"
	DBConn    string
	LogLevel  string
	JWTSecret string

	// External text-generation collaborator
	TextGenURL string

	// SMTP for proactive reminders
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	// Cron expression for the daily risk sweep
	SweepSchedule string

	Engine EngineConfig
}

// EngineConfig holds every tunable of the financial state engine. Nothing in
// the engine hardcodes these values.
type EngineConfig struct {
	// Allocation
	DiscretionaryBucket string  // bucket receiving remainders and taper redirects
	RiskWindowDays      int     // obligation proximity that triggers a boost
	BoostFactor         float64 // fraction of base percent added to boosted buckets
	TaperFactor         float64 // fraction of effective percent removed at target

	// Deduction cascade: non-reserved bucket names in draw order. Reserved
	// buckets always follow, in ascending priority.
	CascadeOrder []string

	// Forecast
	IncomeWindowDays  int   // trailing window for income averages
	ExpenseWindowDays int   // trailing window for discretionary spend estimate
	TightBuffer       int64 // paise; below this a positive day is "tight"
	WeekendWeighting  bool  // use weekday/weekend split instead of flat average

	// Risk scoring
	WeightObligations  float64
	WeightShortfalls   float64
	WeightVolatility   float64
	WeightBelowTarget  float64
	RiskBandModerate   float64 // score at which "low" ends
	RiskBandHigh       float64 // score at which "moderate" ends
	RiskBandCritical   float64 // score at which "high" ends
	DefaultHorizonDays int
	ForecastMinHistory int // income data points below this flag low confidence

	// Advance guardrails
	GuardrailPercent        float64 // of trailing weekly income
	MaxActiveAdvances       int
	MinAdvanceAmount        int64 // paise
	MaxAdvanceAmount        int64 // paise
	FeePercent              float64
	AdvanceDueInDays        int
	AdvanceIncomeWindowDays int // trailing window for weekly income estimate
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=gigfin sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		TextGenURL:    getEnv("TEXTGEN_URL", "http://localhost:9000/generate"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "1025"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "no-reply@gigfin.local"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 8 * * *"),
		Engine: EngineConfig{
			DiscretionaryBucket:     getEnv("DISCRETIONARY_BUCKET", "discretionary"),
			RiskWindowDays:          getEnvInt("RISK_WINDOW_DAYS", 3),
			BoostFactor:             getEnvFloat("BOOST_FACTOR", 0.30),
			TaperFactor:             getEnvFloat("TAPER_FACTOR", 0.30),
			CascadeOrder:            getEnvList("CASCADE_ORDER", "discretionary,flex,fuel,savings,emergency"),
			IncomeWindowDays:        getEnvInt("INCOME_WINDOW_DAYS", 14),
			ExpenseWindowDays:       getEnvInt("EXPENSE_WINDOW_DAYS", 14),
			TightBuffer:             getEnvInt64("TIGHT_BUFFER", 50000), // ₹500
			WeekendWeighting:        getEnvBool("WEEKEND_WEIGHTING", true),
			WeightObligations:       getEnvFloat("RISK_WEIGHT_OBLIGATIONS", 0.35),
			WeightShortfalls:        getEnvFloat("RISK_WEIGHT_SHORTFALLS", 0.30),
			WeightVolatility:        getEnvFloat("RISK_WEIGHT_VOLATILITY", 0.20),
			WeightBelowTarget:       getEnvFloat("RISK_WEIGHT_BELOW_TARGET", 0.15),
			RiskBandModerate:        getEnvFloat("RISK_BAND_MODERATE", 40),
			RiskBandHigh:            getEnvFloat("RISK_BAND_HIGH", 65),
			RiskBandCritical:        getEnvFloat("RISK_BAND_CRITICAL", 85),
			DefaultHorizonDays:      getEnvInt("FORECAST_HORIZON_DAYS", 30),
			ForecastMinHistory:      getEnvInt("FORECAST_MIN_HISTORY", 2),
			GuardrailPercent:        getEnvFloat("ADVANCE_GUARDRAIL_PERCENT", 0.40),
			MaxActiveAdvances:       getEnvInt("ADVANCE_MAX_ACTIVE", 1),
			MinAdvanceAmount:        getEnvInt64("ADVANCE_MIN_AMOUNT", 10000),  // ₹100
			MaxAdvanceAmount:        getEnvInt64("ADVANCE_MAX_AMOUNT", 500000), // ₹5000
			FeePercent:              getEnvFloat("ADVANCE_FEE_PERCENT", 0),
			AdvanceDueInDays:        getEnvInt("ADVANCE_DUE_IN_DAYS", 7),
			AdvanceIncomeWindowDays: getEnvInt("ADVANCE_INCOME_WINDOW_DAYS", 28),
		},
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects band and guardrail settings the engine cannot honor.
func (e *EngineConfig) Validate() error {
	if !(e.RiskBandModerate > 0 && e.RiskBandModerate < e.RiskBandHigh &&
		e.RiskBandHigh < e.RiskBandCritical && e.RiskBandCritical <= 100) {
		return fmt.Errorf("risk bands must satisfy 0 < moderate < high < critical <= 100, got %.0f/%.0f/%.0f",
			e.RiskBandModerate, e.RiskBandHigh, e.RiskBandCritical)
	}
	if e.BoostFactor < 0 || e.TaperFactor < 0 || e.TaperFactor >= 1 {
		return fmt.Errorf("boost factor must be >= 0 and taper factor in [0,1)")
	}
	if e.GuardrailPercent <= 0 || e.GuardrailPercent > 1 {
		return fmt.Errorf("advance guardrail percent must be in (0,1], got %v", e.GuardrailPercent)
	}
	if e.MinAdvanceAmount <= 0 || e.MaxAdvanceAmount < e.MinAdvanceAmount {
		return fmt.Errorf("advance amount bounds are invalid: min=%d max=%d", e.MinAdvanceAmount, e.MaxAdvanceAmount)
	}
	if e.MaxActiveAdvances < 1 {
		return fmt.Errorf("ADVANCE_MAX_ACTIVE must be at least 1")
	}
	if e.ForecastMinHistory < 1 {
		return fmt.Errorf("FORECAST_MIN_HISTORY must be at least 1")
	}
	if e.DiscretionaryBucket == "" {
		return fmt.Errorf("DISCRETIONARY_BUCKET is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key, defaultVal string) []string {
	raw := getEnv(key, defaultVal)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

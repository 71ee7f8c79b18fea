package config

import (
	"testing"
)

func validEngineConfig() EngineConfig {
	return EngineConfig{
		DiscretionaryBucket: "discretionary",
		BoostFactor:         0.30,
		TaperFactor:         0.30,
		RiskBandModerate:    40,
		RiskBandHigh:        65,
		RiskBandCritical:    85,
		GuardrailPercent:    0.40,
		MaxActiveAdvances:   1,
		ForecastMinHistory:  2,
		MinAdvanceAmount:    10000,
		MaxAdvanceAmount:    500000,
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %s, want postgres", cfg.DBDriver)
	}
	if cfg.Engine.DiscretionaryBucket != "discretionary" {
		t.Errorf("DiscretionaryBucket = %s, want discretionary", cfg.Engine.DiscretionaryBucket)
	}
	if got := cfg.Engine.CascadeOrder; len(got) != 5 || got[0] != "discretionary" {
		t.Errorf("CascadeOrder = %v, want discretionary-first list of 5", got)
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("TIGHT_BUFFER", "75000")
	t.Setenv("CASCADE_ORDER", "discretionary, fuel")
	t.Setenv("WEEKEND_WEIGHTING", "false")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %s, want sqlite", cfg.DBDriver)
	}
	if cfg.Engine.TightBuffer != 75000 {
		t.Errorf("TightBuffer = %d, want 75000", cfg.Engine.TightBuffer)
	}
	if got := cfg.Engine.CascadeOrder; len(got) != 2 || got[1] != "fuel" {
		t.Errorf("CascadeOrder = %v, want [discretionary fuel]", got)
	}
	if cfg.Engine.WeekendWeighting {
		t.Errorf("WeekendWeighting = true, want false")
	}
}

func TestNewConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	if _, err := NewConfig(); err == nil {
		t.Fatalf("NewConfig() accepted unknown driver")
	}
}

func TestEngineConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr bool
	}{
		{"valid defaults", func(e *EngineConfig) {}, false},
		{"bands out of order", func(e *EngineConfig) { e.RiskBandHigh = 30 }, true},
		{"critical above 100", func(e *EngineConfig) { e.RiskBandCritical = 120 }, true},
		{"taper at 1", func(e *EngineConfig) { e.TaperFactor = 1 }, true},
		{"guardrail zero", func(e *EngineConfig) { e.GuardrailPercent = 0 }, true},
		{"max below min advance", func(e *EngineConfig) { e.MaxAdvanceAmount = 5000 }, true},
		{"no active slots", func(e *EngineConfig) { e.MaxActiveAdvances = 0 }, true},
		{"forecast min history zero", func(e *EngineConfig) { e.ForecastMinHistory = 0 }, true},
		{"missing discretionary bucket", func(e *EngineConfig) { e.DiscretionaryBucket = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEngineConfig()
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

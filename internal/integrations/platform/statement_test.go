package platform

import (
	"strings"
	"testing"
	"time"
)

func TestParseStatement(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Statement platform="uber">
  <Earning amount="450.50" date="2024-01-12" />
  <Earning amount="1200" date="2024-01-13" source="uber_eats" />
</Statement>`)

	entries, err := ParseStatement(raw)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Amount != 45050 {
		t.Errorf("entries[0].Amount = %d, want 45050", entries[0].Amount)
	}
	if entries[0].Source != "uber" {
		t.Errorf("entries[0].Source = %s, want platform fallback uber", entries[0].Source)
	}
	if want := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC); !entries[0].EarnedAt.Equal(want) {
		t.Errorf("entries[0].EarnedAt = %v, want %v", entries[0].EarnedAt, want)
	}
	if entries[1].Amount != 120000 {
		t.Errorf("entries[1].Amount = %d, want 120000", entries[1].Amount)
	}
	if entries[1].Source != "uber_eats" {
		t.Errorf("entries[1].Source = %s, want uber_eats", entries[1].Source)
	}
}

func TestParseStatementErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "not xml",
			raw:     `{"amount": 450}`,
			wantErr: "failed to parse XML",
		},
		{
			name:    "wrong root",
			raw:     `<Payout><Earning amount="1" date="2024-01-12"/></Payout>`,
			wantErr: "no Statement element",
		},
		{
			name:    "missing amount",
			raw:     `<Statement platform="ola"><Earning date="2024-01-12"/></Statement>`,
			wantErr: "missing amount or date",
		},
		{
			name:    "sub-paise precision",
			raw:     `<Statement platform="ola"><Earning amount="450.505" date="2024-01-12"/></Statement>`,
			wantErr: "sub-paise precision",
		},
		{
			name:    "negative amount",
			raw:     `<Statement platform="ola"><Earning amount="-10" date="2024-01-12"/></Statement>`,
			wantErr: "must be positive",
		},
		{
			name:    "bad date",
			raw:     `<Statement platform="ola"><Earning amount="10" date="12-01-2024"/></Statement>`,
			wantErr: "invalid date",
		},
		{
			name:    "empty statement",
			raw:     `<Statement platform="ola"></Statement>`,
			wantErr: "no earnings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatement([]byte(tt.raw))
			if err == nil {
				t.Fatalf("ParseStatement() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

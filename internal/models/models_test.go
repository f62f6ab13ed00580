package models

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "plain", raw: "170", want: 170},
		{name: "thousands separator", raw: "1,234", want: 1234},
		{name: "padded", raw: "  580 ", want: 580},
		{name: "whole decimal", raw: "580.0", want: 580},
		{name: "fraction rejected", raw: "12.7", wantErr: true},
		{name: "out of range", raw: "9223372036854775808", wantErr: true},
		{name: "huge exponent", raw: "1e30", wantErr: true},
		{name: "infinity", raw: "Inf", wantErr: true},
		{name: "blank is zero", raw: "", want: 0},
		{name: "dash is zero", raw: "-", want: 0},
		{name: "text", raw: "미정", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount("gov_subsidy", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAmount() = %v, want %v", got, tt.want)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected ValidationError, got %T", err)
				} else if verr.Field != "gov_subsidy" {
					t.Errorf("Field = %v, want gov_subsidy", verr.Field)
				}
			}
		})
	}
}

func TestModelSubsidy_Amounts(t *testing.T) {
	m := ModelSubsidy{GovSubsidy: 580, LocalSubsidy: 1250, TotalSubsidy: 1830}
	got := m.Amounts()

	if got.Gov != "580 만원" {
		t.Errorf("Gov = %q", got.Gov)
	}
	if got.Local != "1,250 만원" {
		t.Errorf("Local = %q", got.Local)
	}
	if got.Total != "1,830 만원" {
		t.Errorf("Total = %q", got.Total)
	}
}

func TestSubsidyFAQ_Title(t *testing.T) {
	f := SubsidyFAQ{Tag: "신청", Question: "보조금은 언제 신청하나요?"}
	if got := f.Title(); got != "[신청] 보조금은 언제 신청하나요?" {
		t.Errorf("Title() = %q", got)
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "date",
		Value:   "invalid",
		Message: "invalid date format",
	}

	if err.Error() != "date: invalid date format" {
		t.Errorf("Error() = %v, want %v", err.Error(), "date: invalid date format")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}

	bare := &ValidationError{Message: "no hour columns"}
	if bare.Error() != "no hour columns" {
		t.Errorf("Error() = %v", bare.Error())
	}
}

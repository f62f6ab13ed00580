package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// RegionSubsidy is a local government's EV purchase subsidy (만원)
type RegionSubsidy struct {
	Sido             string `json:"sido" db:"sido"`
	RegionName       string `json:"region_name" db:"region_name"`
	SubsidyPassenger int64  `json:"subsidy_passenger" db:"subsidy_passenger"`
	SubsidyMicro     int64  `json:"subsidy_micro" db:"subsidy_micro"`
}

// ModelSubsidy is the subsidy of one vehicle model in one region (만원)
type ModelSubsidy struct {
	RegionName   string `json:"region_name" db:"region_name"`
	VehicleType  string `json:"vehicle_type" db:"vehicle_type"`
	Manufacturer string `json:"manufacturer" db:"manufacturer"`
	ModelName    string `json:"model_name" db:"model_name"`
	GovSubsidy   int64  `json:"gov_subsidy" db:"gov_subsidy"`
	LocalSubsidy int64  `json:"local_subsidy" db:"local_subsidy"`
	TotalSubsidy int64  `json:"total_subsidy" db:"total_subsidy"`
}

// SubsidyAmounts carries display strings such as "1,234 만원"
type SubsidyAmounts struct {
	Gov   string `json:"gov"`
	Local string `json:"local"`
	Total string `json:"total"`
}

// Amounts formats the three subsidy figures with thousands separators
func (m *ModelSubsidy) Amounts() SubsidyAmounts {
	return SubsidyAmounts{
		Gov:   FormatManwon(m.GovSubsidy),
		Local: FormatManwon(m.LocalSubsidy),
		Total: FormatManwon(m.TotalSubsidy),
	}
}

// FormatManwon renders an amount in 만원 units, e.g. 1,234 만원
func FormatManwon(amount int64) string {
	return humanize.Comma(amount) + " 만원"
}

// LocalContact is the department handling subsidies in a region
type LocalContact struct {
	Sido       string `json:"sido" db:"sido"`
	RegionName string `json:"region_name" db:"region_name"`
	Department string `json:"department" db:"department"`
	Phone      string `json:"phone" db:"phone"`
}

// ParseAmount parses a CSV amount cell, accepting "1,234" and blanks as zero
func ParseAmount(field, raw string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n, nil
	}
	// Spreadsheet exports write whole amounts as "580.0"
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   raw,
			Message: fmt.Sprintf("invalid amount %q", raw),
		}
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &ValidationError{
			Field:   field,
			Value:   raw,
			Message: fmt.Sprintf("amount %q is not a whole number in range", raw),
		}
	}
	return int64(f), nil
}

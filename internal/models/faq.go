package models

import "strings"

// SubsidyFAQ is a question from the subsidy programme FAQ (ev_faq)
type SubsidyFAQ struct {
	Page     int    `json:"page" db:"page"`
	FAQOrder int    `json:"faq_order" db:"faq_order"`
	Tag      string `json:"tag" db:"tag"`
	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`
}

// Title is the expander heading used by the dashboard: "[tag] question"
func (f *SubsidyFAQ) Title() string {
	return "[" + f.Tag + "] " + f.Question
}

// BrandFAQ is a manufacturer FAQ entry (kia_faq, bmw_faq, ...)
type BrandFAQ struct {
	ID       int64  `json:"id" db:"faq_id"`
	Category string `json:"category" db:"category"`
	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`
}

// Brand identifies a manufacturer with its own FAQ table
type Brand string

const (
	BrandKIA   Brand = "KIA"
	BrandBMW   Brand = "BMW"
	BrandTesla Brand = "Tesla"
	BrandBYD   Brand = "BYD"
)

// Brands lists the supported manufacturers in display order
var Brands = []Brand{BrandKIA, BrandBMW, BrandTesla, BrandBYD}

// ParseBrand matches a brand name case-insensitively
func ParseBrand(name string) (Brand, bool) {
	for _, b := range Brands {
		if strings.EqualFold(string(b), strings.TrimSpace(name)) {
			return b, true
		}
	}
	return "", false
}

// Categorized reports whether the brand's FAQ is browsed by category
func (b Brand) Categorized() bool {
	return b == BrandKIA || b == BrandTesla
}

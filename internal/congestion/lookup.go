package congestion

// Current is the congestion answer for a category at a given hour
type Current struct {
	Hour       int    `json:"hour" yaml:"hour"`
	ChargeType string `json:"charge_type" yaml:"charge_type"`
	Congestion Level  `json:"congestion" yaml:"congestion"`
	Label      string `json:"label" yaml:"label"`
	Message    string `json:"message" yaml:"message"`
}

// CurrentCongestion looks up (category, hour). A miss reports ok=false
// rather than an error; the caller supplies the hour.
func CurrentCongestion(t Table, category string, hour int) (Current, bool) {
	for _, row := range t {
		if row.Category == category && row.Hour == hour {
			return Current{
				Hour:       hour,
				ChargeType: category,
				Congestion: row.Level,
				Label:      row.Level.Label(),
				Message:    row.Level.Message(),
			}, true
		}
	}
	return Current{}, false
}

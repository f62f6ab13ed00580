package congestion

import "time"

// LoadRecord is one charging load in long form. Load is NaN when the
// source cell was blank.
type LoadRecord struct {
	Date     time.Time `json:"date"`
	Category string    `json:"charge_type"`
	Hour     int       `json:"hour"`
	Load     float64   `json:"load"`
}

// Reshape melts the wide table into one record per (date, category, hour).
// The result always holds len(Rows) × len(Hours) records, hour columns
// varying fastest.
func Reshape(t *WideTable) []LoadRecord {
	if t == nil {
		return nil
	}

	records := make([]LoadRecord, 0, len(t.Rows)*len(t.Hours))
	for _, row := range t.Rows {
		for i, hour := range t.Hours {
			records = append(records, LoadRecord{
				Date:     row.Date,
				Category: row.Category,
				Hour:     hour,
				Load:     row.Loads[i],
			})
		}
	}
	return records
}

package congestion

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Row is the hourly mean of one category with its congestion level
type Row struct {
	Category string  `json:"charge_type" yaml:"charge_type"`
	Hour     int     `json:"hour" yaml:"hour"`
	MeanLoad float64 `json:"mean_load" yaml:"mean_load"`
	Level    Level   `json:"congestion" yaml:"congestion"`
	Label    string  `json:"label" yaml:"label"`
}

// Table is the classified hourly-mean table, ordered by category then hour
type Table []Row

// Thresholds are a category's quartile cut points
type Thresholds struct {
	Q25 float64 `json:"q25" yaml:"q25"`
	Q75 float64 `json:"q75" yaml:"q75"`
}

// Classify applies the level rule: HIGH is checked before LOW, so a value
// equal to both thresholds (q25 == q75) is HIGH.
func (th Thresholds) Classify(mean float64) Level {
	switch {
	case mean >= th.Q75:
		return High
	case mean <= th.Q25:
		return Low
	default:
		return Medium
	}
}

type groupKey struct {
	category string
	hour     int
}

// BuildTable averages load per (category, hour) and labels each hour
// against its category's q25/q75. NaN loads are left out of the mean, and
// a group with no observed load gets no row. Empty input yields an empty
// table.
func BuildTable(records []LoadRecord) Table {
	loads := make(map[groupKey][]float64)
	for _, r := range records {
		if math.IsNaN(r.Load) {
			continue
		}
		k := groupKey{category: r.Category, hour: r.Hour}
		loads[k] = append(loads[k], r.Load)
	}

	keys := make([]groupKey, 0, len(loads))
	for k := range loads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].hour < keys[j].hour
	})

	table := make(Table, 0, len(keys))
	for _, k := range keys {
		table = append(table, Row{
			Category: k.category,
			Hour:     k.hour,
			MeanLoad: stat.Mean(loads[k], nil),
		})
	}

	// Rows of one category are contiguous after sorting
	for start := 0; start < len(table); {
		end := start
		for end < len(table) && table[end].Category == table[start].Category {
			end++
		}

		means := make([]float64, 0, end-start)
		for _, row := range table[start:end] {
			means = append(means, row.MeanLoad)
		}
		th := QuantileThresholds(means)

		for i := start; i < end; i++ {
			table[i].Level = th.Classify(table[i].MeanLoad)
			table[i].Label = table[i].Level.Label()
		}
		start = end
	}

	return table
}

// QuantileThresholds computes q25 and q75 of values
func QuantileThresholds(values []float64) Thresholds {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Thresholds{
		Q25: Quantile(sorted, 0.25),
		Q75: Quantile(sorted, 0.75),
	}
}

// Quantile returns the p-quantile of sorted data, interpolating linearly
// between the closest ranks at position (n-1)·p. gonum's stat.Quantile
// offers only the Empirical and LinInterp (n·p based) estimators, which
// disagree with this definition on small samples.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Categories returns the distinct categories in table order
func (t Table) Categories() []string {
	var out []string
	for i, row := range t {
		if i == 0 || row.Category != t[i-1].Category {
			out = append(out, row.Category)
		}
	}
	return out
}

// ForCategory returns the rows of one category
func (t Table) ForCategory(category string) Table {
	var out Table
	for _, row := range t {
		if row.Category == category {
			out = append(out, row)
		}
	}
	return out
}

// Thresholds recomputes the quartile cut points of each category
func (t Table) Thresholds() map[string]Thresholds {
	means := make(map[string][]float64)
	for _, row := range t {
		means[row.Category] = append(means[row.Category], row.MeanLoad)
	}

	out := make(map[string]Thresholds, len(means))
	for category, values := range means {
		out[category] = QuantileThresholds(values)
	}
	return out
}

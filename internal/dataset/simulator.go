package dataset

import (
	"math/rand/v2"
	"time"
)

type columnSpec struct {
	name    string
	lo, hi  float64
	integer bool
}

// simulatedColumns reproduces the value ranges of the prototype collectors.
// Integer columns draw from [lo, hi), real columns from [lo, hi).
var simulatedColumns = map[Category][]columnSpec{
	Activity: {
		{name: "steps", lo: 0, hi: 1000, integer: true},
		{name: "movement_level", lo: 0, hi: 1},
		{name: "exercise_minutes", lo: 0, hi: 60, integer: true},
	},
	Social: {
		{name: "social_interactions", lo: 0, hi: 10, integer: true},
		{name: "message_count", lo: 0, hi: 20, integer: true},
		{name: "social_media_usage", lo: 0, hi: 30, integer: true},
	},
	Physiological: {
		{name: "heart_rate", lo: 60, hi: 100, integer: true},
		{name: "stress_level", lo: 0, hi: 1},
		{name: "sleep_quality", lo: 0, hi: 1},
	},
	Environmental: {
		{name: "temperature", lo: 15, hi: 30},
		{name: "humidity", lo: 30, hi: 70},
		{name: "light_level", lo: 0, hi: 1},
	},
	Mindset: {
		{name: "mood_score", lo: 0, hi: 1},
		{name: "energy_level", lo: 0, hi: 1},
		{name: "focus_level", lo: 0, hi: 1},
		{name: "stress_level", lo: 0, hi: 1},
	},
}

// SimulatedColumns returns the column names the simulator emits for a category.
func SimulatedColumns(category Category) []string {
	specs := simulatedColumns[category]
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.name
	}
	return out
}

// Simulator generates random hourly measurements. It stands in for real
// sensor collection and is deterministic for a given seed.
type Simulator struct {
	rng      *rand.Rand
	interval time.Duration
}

// NewSimulator creates a simulator with its own seeded random source.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{
		rng:      rand.New(rand.NewPCG(seed, 0)),
		interval: time.Hour,
	}
}

// Collect produces one table for category covering [start, start+duration]
// at the simulator interval. Both endpoints are included, so a one-day
// window yields 25 hourly rows.
func (s *Simulator) Collect(category Category, start time.Time, duration time.Duration) *Table {
	specs := simulatedColumns[category]
	table := NewTable(category, SimulatedColumns(category)...)

	row := make([]float64, len(specs))
	end := start.Add(duration)
	for ts := start; !ts.After(end); ts = ts.Add(s.interval) {
		for i, spec := range specs {
			if spec.integer {
				row[i] = spec.lo + float64(s.rng.IntN(int(spec.hi-spec.lo)))
			} else {
				row[i] = spec.lo + s.rng.Float64()*(spec.hi-spec.lo)
			}
		}
		// Row width always matches the declared columns.
		_ = table.AppendRow(ts, row...)
	}
	return table
}

// CollectAll produces tables for every category for the day starting at date.
func (s *Simulator) CollectAll(date time.Time) Tables {
	tables := make(Tables, len(AllCategories))
	for _, c := range AllCategories {
		tables[c] = s.Collect(c, date, 24*time.Hour)
	}
	return tables
}

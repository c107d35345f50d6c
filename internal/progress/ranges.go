package progress

// Range is the slice of the end-to-end [0, 1] scale a stage reports into.
type Range struct {
	Name  string
	Start float64
	End   float64
}

// Map linearly projects a stage-local fraction into the range.
func (r Range) Map(f float64) float64 {
	return r.Start + (r.End-r.Start)*clamp01(f)
}

var (
	Extract    = Range{Name: "extract", Start: 0, End: 0.05}
	Transcribe = Range{Name: "transcribe", Start: 0.05, End: 0.15}
	Translate  = Range{Name: "translate", Start: 0.15, End: 0.70}
	Synthesize = Range{Name: "synthesize", Start: 0.70, End: 0.90}
	Mux        = Range{Name: "mux", Start: 0.90, End: 0.99}
)

// Stages lists the pipeline ranges in execution order.
func Stages() []Range {
	return []Range{Extract, Transcribe, Translate, Synthesize, Mux}
}

// Monotonic clamps a sequence of fractions so it never decreases.
type Monotonic struct {
	last float64
}

func (m *Monotonic) Next(f float64) float64 {
	f = clamp01(f)
	if f < m.last {
		return m.last
	}
	m.last = f
	return f
}

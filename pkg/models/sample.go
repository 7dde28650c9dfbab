package models

// Sample represents a single reading received from the instrument
type Sample struct {
	Time    int64 `json:"time"`
	Voltage int64 `json:"voltage"`
}

// Series holds the readings of one run as two aligned sequences, in arrival order
type Series struct {
	Time    []int64 `json:"time"`
	Voltage []int64 `json:"voltage"`
}

// NewSeries returns an empty series
func NewSeries() *Series {
	return &Series{Time: []int64{}, Voltage: []int64{}}
}

// Append adds a sample to both sequences
func (s *Series) Append(sample Sample) {
	s.Time = append(s.Time, sample.Time)
	s.Voltage = append(s.Voltage, sample.Voltage)
}

// Len returns the number of samples
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// XValues returns the time sequence as float64 for charting
func (s *Series) XValues() []float64 {
	return toFloats(s.Time)
}

// YValues returns the voltage sequence as float64 for charting
func (s *Series) YValues() []float64 {
	return toFloats(s.Voltage)
}

func toFloats(values []int64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

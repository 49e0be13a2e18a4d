// Package filter smooths noisy samples such as successive NTP clock offsets.
package filter

// Kalman blends each new sample with the mean of the last few samples. Despite the name it is a weighted moving
// average, which is all a handful of NTP offsets needs.
type Kalman struct {
	gain   float64
	values []float64
}

func NewKalman(size uint8) *Kalman {
	if size == 0 {
		size = 1
	}
	return &Kalman{
		gain:   0.2,
		values: make([]float64, 0, size),
	}
}

// SetGain sets the weight of the newest sample, between 0 and 1.
func (f *Kalman) SetGain(gain float64) {
	f.gain = gain
}

func (f *Kalman) Filter(value float64) float64 {
	var sum float64
	invGain := 1 - f.gain

	if l := len(f.values); l < cap(f.values) {
		f.values = append(f.values, value)
	} else {
		copy(f.values, f.values[1:])
		f.values[l-1] = value
	}

	for _, v := range f.values {
		sum += v
	}
	avg := sum / float64(len(f.values))

	return (f.gain * value) + (invGain * avg)
}

// Len returns the number of samples in the window.
func (f *Kalman) Len() int {
	return len(f.values)
}

func (f *Kalman) Reset() {
	f.values = f.values[:0]
}

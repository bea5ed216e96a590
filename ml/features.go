package ml

// EncodeHistory one-hot encodes the last `window` choices into a flat vector of
// window*optionCount features. Shorter histories are zero-padded at the front so
// the newest choice always occupies the last slot.
func EncodeHistory(history []int, window, optionCount int) []float64 {
	features := make([]float64, window*optionCount)

	start := len(history) - window
	if start < 0 {
		start = 0
	}
	recent := history[start:]
	offset := window - len(recent)

	for i, choice := range recent {
		if choice < 0 || choice >= optionCount {
			continue
		}
		features[(offset+i)*optionCount+choice] = 1
	}
	return features
}

func OneHot(value, optionCount int) []float64 {
	encoded := make([]float64, optionCount)
	if value >= 0 && value < optionCount {
		encoded[value] = 1
	}
	return encoded
}

package ml

type TrainingExample struct {
	Input []float64
	Label int
}

// exampleRing keeps the most recent examples up to a fixed capacity, evicting
// the oldest first.
type exampleRing struct {
	items []TrainingExample
	start int
	size  int
}

func newExampleRing(capacity int) *exampleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &exampleRing{items: make([]TrainingExample, capacity)}
}

func (r *exampleRing) push(example TrainingExample) {
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.start+r.size)%capacity] = example
		r.size++
		return
	}
	r.items[r.start] = example
	r.start = (r.start + 1) % capacity
}

// at indexes oldest first.
func (r *exampleRing) at(i int) TrainingExample {
	return r.items[(r.start+i)%len(r.items)]
}

func (r *exampleRing) len() int {
	return r.size
}

func (r *exampleRing) clear() {
	for i := range r.items {
		r.items[i] = TrainingExample{}
	}
	r.start = 0
	r.size = 0
}

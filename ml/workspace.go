package ml

import "gonum.org/v1/gonum/mat"

// workspace recycles the matrices used by forward and backward passes. Every
// lease goes through a scope, and the scope hands all of its matrices back when
// released, so nothing allocated for one round survives into the next.
type workspace struct {
	free map[[2]int][]*mat.Dense
	live int
}

func newWorkspace() *workspace {
	return &workspace{free: make(map[[2]int][]*mat.Dense)}
}

type scope struct {
	ws     *workspace
	leased []*mat.Dense
}

func (w *workspace) scope() *scope {
	return &scope{ws: w}
}

// dense returns a zeroed r×c matrix owned by the scope.
func (s *scope) dense(r, c int) *mat.Dense {
	key := [2]int{r, c}
	var m *mat.Dense
	if pool := s.ws.free[key]; len(pool) > 0 {
		m = pool[len(pool)-1]
		s.ws.free[key] = pool[:len(pool)-1]
		m.Zero()
	} else {
		m = mat.NewDense(r, c, nil)
	}
	s.leased = append(s.leased, m)
	s.ws.live++
	return m
}

func (s *scope) release() {
	for _, m := range s.leased {
		r, c := m.Dims()
		key := [2]int{r, c}
		s.ws.free[key] = append(s.ws.free[key], m)
	}
	s.ws.live -= len(s.leased)
	s.leased = nil
}

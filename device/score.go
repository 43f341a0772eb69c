package device

// Candidate carries the properties scoring looks at, decoupled from
// the live adapter handle so policies stay testable.
type Candidate struct {
	Type            Type
	DeviceLocalHeap uint64
}

// ScorePolicy turns a candidate into a comparable score.
// Higher scores win, ties keep the earlier enumerated candidate.
type ScorePolicy func(Candidate) uint64

// ScoreByHeap ranks adapters purely by their largest device local
// heap. This is the default policy.
func ScoreByHeap(c Candidate) uint64 {
	return c.DeviceLocalHeap
}

// ScoreByTypeAndHeap ranks discrete over integrated over virtual
// adapters, breaking ties within a type by heap size. The type rank
// occupies the top bits so no realistic heap size can outweigh it.
func ScoreByTypeAndHeap(c Candidate) uint64 {
	var rank uint64
	switch c.Type {
	case TypeDiscrete:
		rank = 3
	case TypeIntegrated:
		rank = 2
	case TypeVirtual:
		rank = 1
	}
	return rank<<60 | c.DeviceLocalHeap
}

// PickBest returns the index of the highest scoring candidate,
// or -1 when the slice is empty. Selection is deterministic given
// identical enumeration order.
func PickBest(candidates []Candidate, policy ScorePolicy) int {
	best := -1
	var bestScore uint64
	for i, c := range candidates {
		score := policy(c)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

package device

import "testing"

const gib = 1 << 30

func TestScoreByHeapPrefersLargerHeap(t *testing.T) {
	small := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 4 * gib}
	large := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 8 * gib}

	if got := PickBest([]Candidate{small, large}, ScoreByHeap); got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}
	if got := PickBest([]Candidate{large, small}, ScoreByHeap); got != 0 {
		t.Errorf("expected index 0, got %d", got)
	}
}

func TestScoreByHeapIgnoresType(t *testing.T) {
	integrated := Candidate{Type: TypeIntegrated, DeviceLocalHeap: 8 * gib}
	discrete := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 4 * gib}

	if got := PickBest([]Candidate{discrete, integrated}, ScoreByHeap); got != 1 {
		t.Errorf("heap policy must pick the bigger heap, got index %d", got)
	}
}

func TestScoreByTypeAndHeapPrefersDiscrete(t *testing.T) {
	// A discrete adapter wins even against an integrated one
	// with a much larger heap.
	integrated := Candidate{Type: TypeIntegrated, DeviceLocalHeap: 64 * gib}
	discrete := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 4 * gib}

	if got := PickBest([]Candidate{integrated, discrete}, ScoreByTypeAndHeap); got != 1 {
		t.Errorf("expected discrete adapter at index 1, got %d", got)
	}
}

func TestScoreByTypeAndHeapBreaksTiesByHeap(t *testing.T) {
	small := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 4 * gib}
	large := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 8 * gib}

	if got := PickBest([]Candidate{small, large}, ScoreByTypeAndHeap); got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}
}

func TestPickBestTiesKeepFirstEnumerated(t *testing.T) {
	a := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 8 * gib}
	b := Candidate{Type: TypeDiscrete, DeviceLocalHeap: 8 * gib}

	if got := PickBest([]Candidate{a, b}, ScoreByHeap); got != 0 {
		t.Errorf("ties must keep the first enumerated adapter, got %d", got)
	}
}

func TestPickBestEmpty(t *testing.T) {
	if got := PickBest(nil, ScoreByHeap); got != -1 {
		t.Errorf("expected -1 for empty candidate list, got %d", got)
	}
}

func TestTypeRanking(t *testing.T) {
	ordered := []Candidate{
		{Type: TypeOther, DeviceLocalHeap: gib},
		{Type: TypeVirtual, DeviceLocalHeap: gib},
		{Type: TypeIntegrated, DeviceLocalHeap: gib},
		{Type: TypeDiscrete, DeviceLocalHeap: gib},
	}
	for i := 1; i < len(ordered); i++ {
		if ScoreByTypeAndHeap(ordered[i]) <= ScoreByTypeAndHeap(ordered[i-1]) {
			t.Errorf("type %d should outrank type %d", ordered[i].Type, ordered[i-1].Type)
		}
	}
}

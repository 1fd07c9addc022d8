package engine

import "github.com/grailchess/grail/internal/board"

// Bound is a TT entry's score-bound flag (§3).
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // score is exact
	BoundLower       // fail-high: stored score is a lower bound on the real value
	BoundUpper       // fail-low: stored score is an upper bound on the real value
)

const entriesPerBucket = 4

// TTEntry is one 16-byte (packed) slot: key32, move16, score_i16,
// static_eval_i16, depth_i8, bound_and_age_u8 (§3).
type TTEntry struct {
	Key        uint32
	Move       board.Move
	Score      int16
	StaticEval int16
	Depth      int8
	boundAge   uint8 // bits 0-1: Bound, bits 2-7: generation
}

func (e TTEntry) Bound() Bound {
	return Bound(e.boundAge & 0x3)
}

func (e TTEntry) Age() uint8 {
	return e.boundAge >> 2
}

func packBoundAge(b Bound, age uint8) uint8 {
	return uint8(b) | (age << 2)
}

// empty reports whether this slot has never been written (or was
// cleared): depth 0 and no move, per §3.
func (e TTEntry) empty() bool {
	return e.Depth == 0 && e.Move == board.NoMove
}

type ttBucket [entriesPerBucket]TTEntry

// TranspositionTable is a fixed-size, open-addressed hash table of
// 4-entry buckets (§3, §4.D).
type TranspositionTable struct {
	buckets []ttBucket
	mask    uint64
	age     uint8

	hits   uint64
	probes uint64
}

// NewTranspositionTable allocates a table sized to approximately
// sizeMB megabytes, rounded down to a power-of-two bucket count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	bucketSize := uint64(entriesPerBucket) * 16
	numBuckets := (uint64(sizeMB) * 1024 * 1024) / bucketSize
	numBuckets = roundDownToPowerOf2(numBuckets)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &TranspositionTable{
		buckets: make([]ttBucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe is the result of a successful TT lookup, with the score already
// adjusted back to be relative to ply (§4.D).
type Probe struct {
	Move       board.Move
	Score      int
	StaticEval int
	Depth      int
	Bound      Bound
}

// Probe looks up hash, returning the path-relative entry on a key match.
// A non-matching or empty slot is a miss (invariant 1).
func (tt *TranspositionTable) Probe(hash uint64, ply int) (Probe, bool) {
	tt.probes++
	bucket := &tt.buckets[hash&tt.mask]
	key32 := uint32(hash >> 32)

	for i := range bucket {
		e := &bucket[i]
		if e.empty() || e.Key != key32 {
			continue
		}
		tt.hits++
		return Probe{
			Move:       e.Move,
			Score:      scoreFromTT(int(e.Score), ply),
			StaticEval: int(e.StaticEval),
			Depth:      int(e.Depth),
			Bound:      e.Bound(),
		}, true
	}
	return Probe{}, false
}

// Store writes a search result into the bucket for hash. score and
// staticEval are path-relative; score is adjusted to a path-independent
// value before storage (§3 invariant 4, §4.D).
func (tt *TranspositionTable) Store(hash uint64, move board.Move, score, staticEval, depth int, bound Bound, ply int) {
	bucket := &tt.buckets[hash&tt.mask]
	key32 := uint32(hash >> 32)
	stored := int16(scoreToTT(score, ply))

	// 1. An entry whose key matches: overwrite if depth >= stored.depth-2
	// or this is an exact bound.
	for i := range bucket {
		e := &bucket[i]
		if e.empty() || e.Key != key32 {
			continue
		}
		if depth >= int(e.Depth)-2 || bound == BoundExact {
			mv := move
			if mv == board.NoMove {
				mv = e.Move // keep previous move if this store has none
			}
			*e = TTEntry{
				Key:        key32,
				Move:       mv,
				Score:      stored,
				StaticEval: int16(staticEval),
				Depth:      int8(depth),
				boundAge:   packBoundAge(bound, tt.age),
			}
		}
		return
	}

	// 2. No key match: pick the victim minimizing depth - 2*age_distance.
	victim := 0
	worst := ttVictimScore(&bucket[0], tt.age)
	for i := 1; i < len(bucket); i++ {
		s := ttVictimScore(&bucket[i], tt.age)
		if s < worst {
			worst = s
			victim = i
		}
	}
	bucket[victim] = TTEntry{
		Key:        key32,
		Move:       move,
		Score:      stored,
		StaticEval: int16(staticEval),
		Depth:      int8(depth),
		boundAge:   packBoundAge(bound, tt.age),
	}
}

func ttVictimScore(e *TTEntry, currentAge uint8) int {
	if e.empty() {
		return -1 << 30
	}
	ageDistance := int(currentAge-e.Age()) & 0x3F
	return int(e.Depth) - 2*ageDistance
}

// NewSearch bumps the generation counter; it does not clear entries.
func (tt *TranspositionTable) NewSearch() {
	tt.age = (tt.age + 1) & 0x3F
}

// Clear zeroes every entry (ucinewgame, hash resize).
func (tt *TranspositionTable) Clear() {
	for i := range tt.buckets {
		tt.buckets[i] = ttBucket{}
	}
	tt.age = 0
	tt.hits = 0
	tt.probes = 0
}

// HashFull samples the first 1000 entries and reports the permille in use.
func (tt *TranspositionTable) HashFull() int {
	sampleBuckets := 250 // 250 buckets * 4 entries = 1000 entries
	if sampleBuckets > len(tt.buckets) {
		sampleBuckets = len(tt.buckets)
	}
	if sampleBuckets == 0 {
		return 0
	}
	used := 0
	total := 0
	for i := 0; i < sampleBuckets; i++ {
		for j := range tt.buckets[i] {
			total++
			e := &tt.buckets[i][j]
			if !e.empty() && e.Age() == tt.age {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return used * 1000 / total
}

func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

func (tt *TranspositionTable) NumBuckets() uint64 {
	return uint64(len(tt.buckets))
}

// scoreFromTT reconstructs a path-relative score from a stored,
// distance-from-root-free value (§3 invariant 4, §4.D).
func scoreFromTT(score, ply int) int {
	if score > Mate-MaxPly {
		return score - ply
	}
	if score < -Mate+MaxPly {
		return score + ply
	}
	return score
}

// scoreToTT strips the ply-dependence from a mate score before storage.
func scoreToTT(score, ply int) int {
	if score > Mate-MaxPly {
		return score + ply
	}
	if score < -Mate+MaxPly {
		return score - ply
	}
	return score
}

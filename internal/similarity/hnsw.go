package similarity

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW index parameters for 512-dim face embeddings.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWDefaultTopK is how many approximate neighbours are re-scored exactly.
	HNSWDefaultTopK = 10
)

// HNSW is an approximate ranker backed by an in-memory HNSW graph.
// The graph is rebuilt whenever the candidate snapshot changes (ids or versions),
// so it never serves results for records that were updated or deleted.
// Returned similarities are exact cosine values re-scored from the candidates.
type HNSW struct {
	TopK int

	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	signature uint64
	dim       int
	size      int
}

// NewHNSW creates an empty HNSW ranker.
func NewHNSW(topK int) *HNSW {
	if topK <= 0 {
		topK = HNSWDefaultTopK
	}
	return &HNSW{TopK: topK}
}

// Name implements Ranker.
func (h *HNSW) Name() string { return "hnsw" }

// Len returns the number of nodes in the current graph.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// snapshotSignature hashes candidate ids, versions and the query dimension.
func snapshotSignature(dim int, candidates []Candidate) uint64 {
	hasher := fnv.New64a()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(dim))
	hasher.Write(buf[:8])
	for _, c := range candidates {
		binary.LittleEndian.PutUint64(buf[:8], uint64(c.ID))
		binary.LittleEndian.PutUint64(buf[8:], uint64(c.Version))
		hasher.Write(buf[:])
	}
	return hasher.Sum64()
}

// ensureGraph rebuilds the graph if the snapshot signature changed.
func (h *HNSW) ensureGraph(dim int, candidates []Candidate) {
	sig := snapshotSignature(dim, candidates)

	h.mu.RLock()
	fresh := h.graph != nil && h.signature == sig && h.dim == dim
	h.mu.RUnlock()
	if fresh {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph != nil && h.signature == sig && h.dim == dim {
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	size := 0
	for _, c := range candidates {
		if len(c.Embedding) != dim || c.Embedding.IsDegenerate() {
			continue
		}
		g.Add(hnsw.MakeNode(c.ID, []float32(c.Embedding.Clone())))
		size++
	}

	h.graph = g
	h.signature = sig
	h.dim = dim
	h.size = size
}

// Rank implements Ranker. It returns the TopK approximate neighbours plus every
// candidate tied with the best exact similarity.
func (h *HNSW) Rank(query Vector, candidates []Candidate) ([]Scored, error) {
	if query.IsDegenerate() {
		return nil, ErrDegenerateVector
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	h.ensureGraph(len(query), candidates)

	position := make(map[int64]int, len(candidates))
	for i, c := range candidates {
		if _, seen := position[c.ID]; !seen {
			position[c.ID] = i
		}
	}

	h.mu.RLock()
	var neighbors []hnsw.Node[int64]
	if h.size > 0 {
		neighbors = h.graph.Search([]float32(query), min(h.TopK, h.size))
	}
	h.mu.RUnlock()

	qn := query.sqNorm()
	scored := make([]Scored, 0, len(neighbors))
	order := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		pos, ok := position[n.Key]
		if !ok {
			continue
		}
		emb := candidates[pos].Embedding
		scored = append(scored, Scored{ID: n.Key, Similarity: cosine(query, emb, qn, emb.sqNorm())})
		order = append(order, pos)
	}

	// The graph returns an arbitrary subset when more than TopK candidates tie
	// for the best score, so pull in every exact tie of the top similarity.
	if len(scored) > 0 {
		best := scored[0].Similarity
		for _, sc := range scored[1:] {
			if sc.Similarity > best {
				best = sc.Similarity
			}
		}
		included := make(map[int]bool, len(order))
		for _, pos := range order {
			included[pos] = true
		}
		for i, c := range candidates {
			if included[i] || position[c.ID] != i || len(c.Embedding) != len(query) || c.Embedding.IsDegenerate() {
				continue
			}
			if sim := cosine(query, c.Embedding, qn, c.Embedding.sqNorm()); sim == best {
				scored = append(scored, Scored{ID: c.ID, Similarity: sim})
				order = append(order, i)
			}
		}
	}

	// Restore snapshot order first so the stable sort gives the same tie-break as Linear.
	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := scored[idx[a]], scored[idx[b]]
		if sa.Similarity != sb.Similarity {
			return sa.Similarity > sb.Similarity
		}
		return order[idx[a]] < order[idx[b]]
	})

	out := make([]Scored, len(idx))
	for i, j := range idx {
		out[i] = scored[j]
	}
	return out, nil
}

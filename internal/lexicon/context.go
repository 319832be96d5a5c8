package lexicon

import "github.com/Atlogit/atlomy/internal/model"

// SampleContext reduces results to at most max entries while preserving
// original ordering, per §4.5 step 2: when the full set fits, it is
// returned unchanged; otherwise entries are dropped at a uniform stride so
// corpus coverage is preserved, and the first and last entries are always
// kept.
func SampleContext(results []model.Result, max int) []model.Result {
	if max <= 0 || len(results) <= max {
		return results
	}
	if max == 1 {
		return results[:1]
	}

	out := make([]model.Result, 0, max)
	stride := float64(len(results)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(float64(i)*stride + 0.5)
		if idx >= len(results) {
			idx = len(results) - 1
		}
		out = append(out, results[idx])
	}
	out[len(out)-1] = results[len(results)-1]
	return dedupAdjacent(out)
}

// dedupAdjacent collapses consecutive duplicate sentence ids that can arise
// from stride rounding on small inputs, without re-ordering anything.
func dedupAdjacent(in []model.Result) []model.Result {
	if len(in) == 0 {
		return in
	}
	out := in[:1]
	for _, r := range in[1:] {
		if r.SentenceID == out[len(out)-1].SentenceID {
			continue
		}
		out = append(out, r)
	}
	return out
}

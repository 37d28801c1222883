package domain

import (
	"hash/fnv"
	"math"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/text"
)

// DefaultFingerprintDimensions is the fixed vector length used by the similarity cache.
const DefaultFingerprintDimensions = 64

// Fingerprinter maps text to a fixed-length vector comparable by cosine similarity.
// Implementations must return vectors of Dimensions() length for every input,
// including the empty string (all zeros).
type Fingerprinter interface {
	Fingerprint(s string) []float64
	Dimensions() int
}

// HashFingerprinter is a deterministic hashed bag-of-words stand-in for a real
// embedding model. Each content word lands in an FNV-selected dimension with
// weight 1/(1+0.25*position), so earlier words count more; the vector is
// L2-normalized.
type HashFingerprinter struct {
	dims int
}

// NewHashFingerprinter creates a hashing fingerprinter. dims <= 0 selects the default.
func NewHashFingerprinter(dims int) *HashFingerprinter {
	if dims <= 0 {
		dims = DefaultFingerprintDimensions
	}
	return &HashFingerprinter{dims: dims}
}

// Dimensions returns the vector length.
func (h *HashFingerprinter) Dimensions() int { return h.dims }

// Fingerprint implements Fingerprinter.
func (h *HashFingerprinter) Fingerprint(s string) []float64 {
	vec := make([]float64, h.dims)
	for pos, w := range text.ContentWords(s) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(w))
		vec[hasher.Sum32()%uint32(h.dims)] += 1 / (1 + 0.25*float64(pos))
	}
	return normalize(vec)
}

func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Cosine returns the cosine similarity of a and b clamped to [0,1].
// Mismatched lengths or zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return Clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Jaccard returns |a∩b| / |a∪b| over case-folded sets. Two empty sets are identical (1).
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[text.Normalize(s)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[text.Normalize(s)] = struct{}{}
	}
	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

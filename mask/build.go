package mask

import (
	"fmt"

	"github.com/hupe1980/fvapprox/model"
)

// Aggregation groups items by label in first-seen order.
//
// Group g is the g-th distinct label encountered while scanning labels from
// the start. Repeated labels map to their original group even when they are
// not contiguous. The distinct labels are returned in group order.
func Aggregation[L comparable](labels []L) (*Mask, []L) {
	seen := make(map[L]int)
	keys := make([]L, 0)
	groupOf := make([]int, len(labels))
	for i, l := range labels {
		g, ok := seen[l]
		if !ok {
			g = len(keys)
			seen[l] = g
			keys = append(keys, l)
		}
		groupOf[i] = g
	}
	return fromAssignment(groupOf, len(keys)), keys
}

// Chunk splits items 0..n-1 into ceil(n/size) contiguous groups of size
// items; the last group holds the remainder.
func Chunk(n, size int) (*Mask, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: chunk size %d < 1", model.ErrInvalidArgument, size)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: item count %d < 0", model.ErrInvalidArgument, n)
	}
	groupOf := make([]int, n)
	for i := range groupOf {
		groupOf[i] = i / size
	}
	return fromAssignment(groupOf, (n+size-1)/size), nil
}

// VisualWord maps the 2·D·K Fisher vector dimensions onto K visual words.
//
// Dimension j lies in half j / (D·K); within its half it belongs to word
// (j mod D·K) / D. Both halves of word k map to group k.
func VisualWord(layout model.Layout) (*Mask, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	half := layout.D * layout.K
	groupOf := make([]int, layout.Dim())
	for j := range groupOf {
		groupOf[j] = (j % half) / layout.D
	}
	return fromAssignment(groupOf, layout.K), nil
}

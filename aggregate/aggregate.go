package aggregate

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/algebra"
	"github.com/hupe1980/fvapprox/mask"
	"github.com/hupe1980/fvapprox/model"
)

// Bucket identifies a merged group: the Index-th run of nAgg slices inside
// the Run-th contiguous run of one group id.
type Bucket struct {
	Run   int
	Index int
}

// BucketKeys assigns every slice to its bucket.
func BucketKeys(groupIDs []string, nAgg int) ([]Bucket, error) {
	if nAgg < 1 {
		return nil, fmt.Errorf("%w: nAgg %d < 1", model.ErrInvalidArgument, nAgg)
	}
	keys := make([]Bucket, len(groupIDs))
	run, pos := -1, 0
	for i, id := range groupIDs {
		if i == 0 || id != groupIDs[i-1] {
			run++
			pos = 0
		}
		keys[i] = Bucket{Run: run, Index: pos / nAgg}
		pos++
	}
	return keys, nil
}

// CheckRuns verifies that nrSlices splits groupIDs exactly at the
// boundaries of its group-id runs: each video holds one id and adjacent
// videos hold different ids.
func CheckRuns(groupIDs []string, nrSlices []int) error {
	row := 0
	for v, n := range nrSlices {
		if n < 1 || row+n > len(groupIDs) {
			return &model.ShapeError{What: "video slices", Expected: [2]int{len(groupIDs), 1}, Actual: [2]int{row + n, 1}}
		}
		id := groupIDs[row]
		if v > 0 && groupIDs[row-1] == id {
			return fmt.Errorf("%w: videos %d and %d share group id %q", model.ErrInvalidArgument, v-1, v, id)
		}
		for i := row + 1; i < row+n; i++ {
			if groupIDs[i] != id {
				return fmt.Errorf("%w: video %d mixes group ids %q and %q", model.ErrInvalidArgument, v, id, groupIDs[i])
			}
		}
		row += n
	}
	if row != len(groupIDs) {
		return &model.ShapeError{What: "video slices", Expected: [2]int{len(groupIDs), 1}, Actual: [2]int{row, 1}}
	}
	return nil
}

// Slices merges data into buckets of at most nAgg slices.
//
// Fisher vectors and counts become NrDescriptors-weighted averages within
// each bucket, NrDescriptors becomes the bucket total, and group id and
// label are carried over from the bucket's first slice. Output rows keep
// the input time order.
func Slices(data model.SliceData, nAgg int) (model.SliceData, error) {
	if err := checkRows(data); err != nil {
		return model.SliceData{}, err
	}
	keys, err := BucketKeys(data.GroupIDs, nAgg)
	if err != nil {
		return model.SliceData{}, err
	}
	m, _ := mask.Aggregation(keys)

	fv, err := algebra.ReweightReduce(data.FisherVectors, data.NrDescriptors, m, m)
	if err != nil {
		return model.SliceData{}, fmt.Errorf("aggregate fisher vectors: %w", err)
	}
	counts, err := algebra.ReweightReduce(data.Counts, data.NrDescriptors, m, m)
	if err != nil {
		return model.SliceData{}, fmt.Errorf("aggregate counts: %w", err)
	}
	nd, err := algebra.ReduceVec(data.NrDescriptors, m)
	if err != nil {
		return model.SliceData{}, fmt.Errorf("aggregate descriptor counts: %w", err)
	}

	out := model.SliceData{
		FisherVectors: fv,
		Counts:        counts,
		NrDescriptors: nd,
		GroupIDs:      make([]string, m.Groups()),
	}
	if data.Labels != nil {
		out.Labels = make([]int, m.Groups())
	}
	for g := 0; g < m.Groups(); g++ {
		first := m.First(g)
		out.GroupIDs[g] = data.GroupIDs[first]
		if out.Labels != nil {
			out.Labels[g] = data.Labels[first]
		}
	}
	return out, nil
}

func checkRows(data model.SliceData) error {
	n := data.Len()
	if data.FisherVectors == nil || data.Counts == nil {
		return fmt.Errorf("%w: missing fisher vectors or counts", model.ErrInvalidArgument)
	}
	if r, c := data.FisherVectors.Dims(); r != n {
		return &model.ShapeError{What: "fisher vector rows", Expected: [2]int{n, c}, Actual: [2]int{r, c}}
	}
	if r, c := data.Counts.Dims(); r != n {
		return &model.ShapeError{What: "count rows", Expected: [2]int{n, c}, Actual: [2]int{r, c}}
	}
	if len(data.GroupIDs) != n {
		return &model.ShapeError{What: "group ids", Expected: [2]int{n, 1}, Actual: [2]int{len(data.GroupIDs), 1}}
	}
	if data.Labels != nil && len(data.Labels) != n {
		return &model.ShapeError{What: "labels", Expected: [2]int{n, 1}, Actual: [2]int{len(data.Labels), 1}}
	}
	return nil
}

// Videos returns the mask from rows to videos in first-seen order, along
// with the video ids in group order.
func Videos(groupIDs []string) (*mask.Mask, []string) {
	return mask.Aggregation(groupIDs)
}

// VideoMask builds the video mask over aggregated rows from per-video slice
// counts: video v owns ceil(nrSlices[v]/nAgg) consecutive rows.
func VideoMask(nrSlices []int, nAgg int) (*mask.Mask, error) {
	if nAgg < 1 {
		return nil, fmt.Errorf("%w: nAgg %d < 1", model.ErrInvalidArgument, nAgg)
	}
	var labels []int
	for v, n := range nrSlices {
		if n < 1 {
			return nil, fmt.Errorf("%w: video %d has %d slices", model.ErrInvalidArgument, v, n)
		}
		for b := 0; b < (n+nAgg-1)/nAgg; b++ {
			labels = append(labels, v)
		}
	}
	m, _ := mask.Aggregation(labels)
	return m, nil
}

// GroupIDs expands per-video slice counts into per-slice ids "0", "1", ...
func GroupIDs(nrSlices []int) ([]string, error) {
	var ids []string
	for v, n := range nrSlices {
		if n < 1 {
			return nil, fmt.Errorf("%w: video %d has %d slices", model.ErrInvalidArgument, v, n)
		}
		id := strconv.Itoa(v)
		for i := 0; i < n; i++ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GroupData sums every n consecutive rows of data.
func GroupData(data *mat.Dense, n int) (*mat.Dense, error) {
	rows, _ := data.Dims()
	m, err := mask.Chunk(rows, n)
	if err != nil {
		return nil, err
	}
	return algebra.Reduce(data, m)
}

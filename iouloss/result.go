package iouloss

// Result is the uniform outcome of an evaluation.
// Fields are populated according to variant and focal mode:
//
//	Metric - always: value of the variant (for WIoU it is IoU recovered from calculator's IoU loss)
//	Weight - only when focal mode matches the variant: sqrt(inter / (union + eps))
//	Loss   - only for WIoU: scaled Wise-IoU loss
type Result struct {
	Metric []float64
	Weight []float64
	Loss   []float64
}

// HasWeight reports whether focal weight was produced
func (r Result) HasWeight() bool {
	return r.Weight != nil
}

// HasLoss reports whether WIoU loss was produced
func (r Result) HasLoss() bool {
	return r.Loss != nil
}

// Tuple returns result arrays in legacy positional order:
//
//	non-WIoU, focal off: [metric]
//	non-WIoU, focal on:  [metric, weight]
//	WIoU, focal off:     [loss, iou]
//	WIoU, focal on:      [iou, weight, loss]
func (r Result) Tuple() [][]float64 {
	switch {
	case r.HasLoss() && r.HasWeight():
		return [][]float64{r.Metric, r.Weight, r.Loss}
	case r.HasLoss():
		return [][]float64{r.Loss, r.Metric}
	case r.HasWeight():
		return [][]float64{r.Metric, r.Weight}
	default:
		return [][]float64{r.Metric}
	}
}

// Len returns number of evaluated box pairs
func (r Result) Len() int {
	return len(r.Metric)
}

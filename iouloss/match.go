package iouloss

import (
	"sort"

	"github.com/arthurkushman/go-hungarian"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MatchingAlgorithm is for algorithm type for matching predictions to targets
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) followed by cycle-cancelling repair for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmGreedy uses a greedy algorithm for faster but potentially suboptimal assignment
	MatchingAlgorithmGreedy
)

// String returns human-readable name of the algorithm
func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return "unknown"
	}
}

// ParseMatchingAlgorithm parses algorithm name as returned by String
func ParseMatchingAlgorithm(s string) (MatchingAlgorithm, error) {
	switch s {
	case "hungarian", "":
		return MatchingAlgorithmHungarian, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return MatchingAlgorithmHungarian, errors.Wrapf(ErrInvalidConfiguration, "unknown matching algorithm '%s'", s)
	}
}

// Match is an assigned pair of prediction and target
type Match struct {
	Pred   int
	Target int
	Metric float64
}

// Matrix returns metric of the configured variant between every prediction (rows) and every target (columns).
// WIoU running mean is not updated. For WIoU the matrix holds IoU.
func (e *Evaluator) Matrix(preds, targets Boxes) ([][]float64, error) {
	if len(preds) == 0 || len(targets) == 0 {
		return [][]float64{}, nil
	}
	matrix := make([][]float64, len(preds))
	for i := range preds {
		result, err := e.evaluate(preds[i:i+1], targets, false, false)
		if err != nil {
			return nil, errors.Wrapf(err, "can't evaluate prediction %d", i)
		}
		matrix[i] = result.Metric
	}
	return matrix, nil
}

// Match assigns predictions to targets maximizing metric of the configured variant.
// Pairs with metric below minMetric are dropped. Matches are sorted by prediction index.
func (e *Evaluator) Match(preds, targets Boxes, minMetric float64, algorithm MatchingAlgorithm) ([]Match, error) {
	matrix, err := e.Matrix(preds, targets)
	if err != nil {
		return nil, err
	}
	var pairs [][2]int
	switch algorithm {
	case MatchingAlgorithmHungarian:
		pairs = performHungarianMatching(matrix, len(preds), len(targets))
	case MatchingAlgorithmGreedy:
		pairs = performGreedyMatching(matrix, minMetric)
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown matching algorithm %d", algorithm)
	}
	matches := make([]Match, 0, len(pairs))
	for _, pair := range pairs {
		metric := matrix[pair[0]][pair[1]]
		if metric >= minMetric {
			matches = append(matches, Match{Pred: pair[0], Target: pair[1], Metric: metric})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Pred < matches[j].Pred
	})
	return matches, nil
}

// improvementTolerance is the smallest gain accepted by assignment repair
const improvementTolerance = 1e-12

// performHungarianMatching pads metric matrix to square one and solves maximization problem.
// Penalized variants may be negative, so matrix is shifted to be non-negative first: padding is then the lowest value.
// go-hungarian output is used as a starting point and then repaired until no improving rotation of columns remains,
// which makes the assignment optimal.
// Returns: a slice of [2]int, where each element is {predIndex, targetIndex}.
func performHungarianMatching(matrix [][]float64, numPreds, numTargets int) [][2]int {
	if numPreds == 0 || numTargets == 0 {
		return [][2]int{}
	}
	lowest := 0.0
	for _, row := range matrix {
		lowest = minFloat64(lowest, floats.Min(row))
	}
	paddedSize := numPreds
	if numTargets > paddedSize {
		paddedSize = numTargets
	}
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
		if i < numPreds {
			copy(paddedMatrix[i], matrix[i])
			floats.AddConst(-lowest, paddedMatrix[i][:numTargets])
		}
	}
	// SolveMax may modify its input
	solverInput := make([][]float64, paddedSize)
	for i := range paddedMatrix {
		solverInput[i] = append([]float64(nil), paddedMatrix[i]...)
	}
	assignment := assignmentFromMap(hungarian.SolveMax(solverInput), paddedSize)
	repairAssignment(paddedMatrix, assignment)

	matches := make([][2]int, 0, numPreds)
	for predIndex := 0; predIndex < numPreds; predIndex++ {
		// Skip dummy columns
		if targetIndex := assignment[predIndex]; targetIndex < numTargets {
			matches = append(matches, [2]int{predIndex, targetIndex})
		}
	}
	return matches
}

// assignmentFromMap converts solver output into permutation row -> column.
// Rows missing in the output or clashing on a column get the free columns.
func assignmentFromMap(assignmentsMap map[int]map[int]float64, size int) []int {
	assignment := make([]int, size)
	usedColumns := make([]bool, size)
	for i := range assignment {
		assignment[i] = -1
	}
	for row, rowMap := range assignmentsMap {
		if row < 0 || row >= size {
			continue
		}
		for column := range rowMap {
			if column >= 0 && column < size && !usedColumns[column] {
				assignment[row] = column
				usedColumns[column] = true
			}
			break
		}
	}
	freeColumn := 0
	for row := range assignment {
		if assignment[row] != -1 {
			continue
		}
		for usedColumns[freeColumn] {
			freeColumn++
		}
		assignment[row] = freeColumn
		usedColumns[freeColumn] = true
	}
	return assignment
}

// repairAssignment improves square assignment in place by cycle cancelling:
// row i taking column of row j gains matrix[i][assignment[j]] - matrix[i][assignment[i]],
// and any cycle of such moves with positive total gain is applied. Assignment without
// such cycles is maximal. Cycles are found with Bellman-Ford on negated gains.
func repairAssignment(matrix [][]float64, assignment []int) {
	n := len(assignment)
	dist := make([]float64, n)
	pred := make([]int, n)
	for {
		for i := range dist {
			dist[i] = 0
			pred[i] = -1
		}
		lastRelaxed := -1
		for iteration := 0; iteration < n; iteration++ {
			lastRelaxed = -1
			for i := 0; i < n; i++ {
				current := matrix[i][assignment[i]]
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					cost := current - matrix[i][assignment[j]]
					if dist[i]+cost < dist[j]-improvementTolerance {
						dist[j] = dist[i] + cost
						pred[j] = i
						lastRelaxed = j
					}
				}
			}
			if lastRelaxed == -1 {
				return
			}
		}
		// Step back n times to land on the cycle
		vertex := lastRelaxed
		for k := 0; k < n && vertex != -1; k++ {
			vertex = pred[vertex]
		}
		if vertex == -1 {
			return
		}
		cycle := []int{vertex}
		for next := pred[vertex]; next != vertex; next = pred[next] {
			if next == -1 || len(cycle) > n {
				return
			}
			cycle = append(cycle, next)
		}
		// pred[x] -> x: row pred[x] takes column of row x
		gain := 0.0
		for _, x := range cycle {
			gain += matrix[pred[x]][assignment[x]] - matrix[pred[x]][assignment[pred[x]]]
		}
		if gain <= improvementTolerance {
			return
		}
		newColumns := make(map[int]int, len(cycle))
		for _, x := range cycle {
			newColumns[pred[x]] = assignment[x]
		}
		for row, column := range newColumns {
			assignment[row] = column
		}
	}
}

// performGreedyMatching gives every prediction (in order) the best target not taken yet
func performGreedyMatching(matrix [][]float64, minMetric float64) [][2]int {
	matches := make([][2]int, 0)
	matchedTargets := make(map[int]struct{})
	for i, row := range matrix {
		best := -1
		bestMetric := 0.0
		for j, metric := range row {
			if _, found := matchedTargets[j]; found {
				continue
			}
			if metric < minMetric {
				continue
			}
			if best == -1 || metric > bestMetric {
				best = j
				bestMetric = metric
			}
		}
		if best != -1 {
			matches = append(matches, [2]int{i, best})
			matchedTargets[best] = struct{}{}
		}
	}
	return matches
}

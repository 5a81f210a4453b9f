package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"aq-backend/internal/models"
)

// StratifiedSplit partitions sample indices into train and test sets so each
// class keeps its share in both. Every class needs at least MinSamplesPerClass
// samples; each contributes round(testSize*n) test samples, clamped so both
// partitions get at least one.
func StratifiedSplit(labels []int, nClasses int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	byClass := make([][]int, nClasses)
	for i, l := range labels {
		if l < 0 || l >= nClasses {
			return nil, nil, fmt.Errorf("label %d out of range at index %d", l, i)
		}
		byClass[l] = append(byClass[l], i)
	}

	for c, idx := range byClass {
		if len(idx) < MinSamplesPerClass {
			return nil, nil, &InsufficientDataError{
				Class:    models.Label(c).String(),
				Count:    len(idx),
				Required: MinSamplesPerClass,
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(testSize * float64(len(idx))))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(idx)-1 {
			nTest = len(idx) - 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

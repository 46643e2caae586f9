package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets so that
// each label keeps its share of the data in both. The test set holds
// ceil(n*testFraction) rows, allocated across labels by largest remainder.
// The same seed always yields the same split.
func StratifiedSplit(labels []int, testFraction float64, seed int64) (train, test []int, err error) {
	n := len(labels)
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0,1), got %v", testFraction)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", n)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}

	byClass := make(map[int][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	type share struct {
		class     int
		take      int
		remainder float64
	}
	shares := make([]share, len(classes))
	allocated := 0
	for i, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		take := int(math.Floor(exact))
		shares[i] = share{class: c, take: take, remainder: exact - float64(take)}
		allocated += take
	}
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].remainder > shares[order[b]].remainder
	})
	for i := 0; allocated < nTest; i = (i + 1) % len(order) {
		s := &shares[order[i]]
		if s.take < len(byClass[s.class]) {
			s.take++
			allocated++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, s := range shares {
		idx := append([]int(nil), byClass[s.class]...)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:s.take]...)
		train = append(train, idx[s.take:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}

// PositiveRate is the fraction of the selected rows labelled 1.
func PositiveRate(labels []int, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	positives := 0
	for _, i := range rows {
		if labels[i] == 1 {
			positives++
		}
	}
	return float64(positives) / float64(len(rows))
}

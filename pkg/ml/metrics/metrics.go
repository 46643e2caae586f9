package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUndefinedAUC is returned when the labels hold a single class.
var ErrUndefinedAUC = errors.New("roc auc undefined: only one class present")

// Confusion counts binary outcomes with 1 as the positive class.
type Confusion struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

func NewConfusion(labels, predicted []int) Confusion {
	var c Confusion
	for i := range labels {
		switch {
		case labels[i] == 1 && predicted[i] == 1:
			c.TruePositive++
		case labels[i] == 0 && predicted[i] == 1:
			c.FalsePositive++
		case labels[i] == 0:
			c.TrueNegative++
		default:
			c.FalseNegative++
		}
	}
	return c
}

func (c Confusion) Total() int {
	return c.TruePositive + c.FalsePositive + c.TrueNegative + c.FalseNegative
}

func (c Confusion) Accuracy() float64 {
	return ratio(c.TruePositive+c.TrueNegative, c.Total())
}

func (c Confusion) Precision() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalsePositive)
}

func (c Confusion) Recall() float64 {
	return ratio(c.TruePositive, c.TruePositive+c.FalseNegative)
}

func (c Confusion) F1() float64 {
	return f1(c.Precision(), c.Recall())
}

// ratio returns 0 when the denominator is zero.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func Accuracy(labels, predicted []int) float64 {
	return NewConfusion(labels, predicted).Accuracy()
}

func Precision(labels, predicted []int) float64 {
	return NewConfusion(labels, predicted).Precision()
}

func Recall(labels, predicted []int) float64 {
	return NewConfusion(labels, predicted).Recall()
}

func F1(labels, predicted []int) float64 {
	return NewConfusion(labels, predicted).F1()
}

// ROCAUC computes the area under the ROC curve from the rank-sum statistic.
// Tied scores share their average rank.
func ROCAUC(labels []int, scores []float64) (float64, error) {
	if len(labels) != len(scores) {
		return 0, fmt.Errorf("roc auc: %d labels but %d scores", len(labels), len(scores))
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var positives, negatives int
	var rankSum float64
	for i, y := range labels {
		if y == 1 {
			positives++
			rankSum += ranks[i]
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0, ErrUndefinedAUC
	}
	p, n := float64(positives), float64(negatives)
	return (rankSum - p*(p+1)/2) / (p * n), nil
}

type ClassScores struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report mirrors a per-class classification report with macro and
// support-weighted averages.
type Report struct {
	Classes  []ClassScores `json:"classes"`
	Accuracy float64       `json:"accuracy"`
	Macro    ClassScores   `json:"macro_avg"`
	Weighted ClassScores   `json:"weighted_avg"`
}

func ClassificationReport(labels, predicted []int) Report {
	c := NewConfusion(labels, predicted)
	negative := ClassScores{
		Label:     "0",
		Precision: ratio(c.TrueNegative, c.TrueNegative+c.FalseNegative),
		Recall:    ratio(c.TrueNegative, c.TrueNegative+c.FalsePositive),
		Support:   c.TrueNegative + c.FalsePositive,
	}
	negative.F1 = f1(negative.Precision, negative.Recall)
	positive := ClassScores{
		Label:     "1",
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
		Support:   c.TruePositive + c.FalseNegative,
	}

	r := Report{Classes: []ClassScores{negative, positive}, Accuracy: c.Accuracy()}
	total := float64(c.Total())
	r.Macro = ClassScores{Label: "macro avg", Support: c.Total()}
	r.Weighted = ClassScores{Label: "weighted avg", Support: c.Total()}
	for _, cs := range r.Classes {
		r.Macro.Precision += cs.Precision / 2
		r.Macro.Recall += cs.Recall / 2
		r.Macro.F1 += cs.F1 / 2
		if total > 0 {
			w := float64(cs.Support) / total
			r.Weighted.Precision += cs.Precision * w
			r.Weighted.Recall += cs.Recall * w
			r.Weighted.F1 += cs.F1 * w
		}
	}
	return r
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %9s %9s %9s %9s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, cs := range r.Classes {
		fmt.Fprintf(&b, "%14s %9.2f %9.2f %9.2f %9d\n", cs.Label, cs.Precision, cs.Recall, cs.F1, cs.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.Macro.Support)
	for _, cs := range []ClassScores{r.Macro, r.Weighted} {
		fmt.Fprintf(&b, "%14s %9.2f %9.2f %9.2f %9d\n", cs.Label, cs.Precision, cs.Recall, cs.F1, cs.Support)
	}
	return b.String()
}

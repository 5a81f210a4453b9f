package ml

import (
	"fmt"
	"strings"
)

// ClassMetrics holds per-class scores on the test partition
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes predictions against true labels
type Evaluation struct {
	Confusion [][]int        `json:"confusion"` // [true][predicted]
	PerClass  []ClassMetrics `json:"per_class"`
	Accuracy  float64        `json:"accuracy"`
}

// Evaluate builds the confusion matrix and per-class precision/recall/F1.
// Undefined ratios (no predictions or no support) are reported as 0.
func Evaluate(yTrue, yPred []int, nClasses int) Evaluation {
	cm := make([][]int, nClasses)
	for i := range cm {
		cm[i] = make([]int, nClasses)
	}
	correct := 0
	for i := range yTrue {
		cm[yTrue[i]][yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	per := make([]ClassMetrics, nClasses)
	for c := 0; c < nClasses; c++ {
		tp := cm[c][c]
		predicted, actual := 0, 0
		for k := 0; k < nClasses; k++ {
			predicted += cm[k][c]
			actual += cm[c][k]
		}
		m := ClassMetrics{Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		per[c] = m
	}

	ev := Evaluation{Confusion: cm, PerClass: per}
	if len(yTrue) > 0 {
		ev.Accuracy = float64(correct) / float64(len(yTrue))
	}
	return ev
}

// ConfusionString renders the confusion matrix one row per true class
func (e Evaluation) ConfusionString() string {
	var b strings.Builder
	for _, row := range e.Confusion {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%4d", v)
		}
		b.WriteString("[" + strings.Join(cells, " ") + "]\n")
	}
	return b.String()
}

// Report renders a classification report with three-digit scores
func (e Evaluation) Report(classNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")

	total := 0
	var macroP, macroR, macroF, weightedP, weightedR, weightedF float64
	for c, m := range e.PerClass {
		fmt.Fprintf(&b, "%12s %9.3f %9.3f %9.3f %9d\n", classNames[c], m.Precision, m.Recall, m.F1, m.Support)
		total += m.Support
		macroP += m.Precision
		macroR += m.Recall
		macroF += m.F1
		weightedP += m.Precision * float64(m.Support)
		weightedR += m.Recall * float64(m.Support)
		weightedF += m.F1 * float64(m.Support)
	}

	n := float64(len(e.PerClass))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %9s %9s %9.3f %9d\n", "accuracy", "", "", e.Accuracy, total)
	fmt.Fprintf(&b, "%12s %9.3f %9.3f %9.3f %9d\n", "macro avg", macroP/n, macroR/n, macroF/n, total)
	if total > 0 {
		t := float64(total)
		fmt.Fprintf(&b, "%12s %9.3f %9.3f %9.3f %9d\n", "weighted avg", weightedP/t, weightedR/t, weightedF/t, total)
	}
	return b.String()
}

package model

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Accuracy is the fraction of exact label matches. Empty input scores 0.
func Accuracy(want, got []string) float64 {
	n := min(len(want), len(got))
	if n == 0 {
		return 0
	}
	correct := 0
	for i := range n {
		if want[i] == got[i] {
			correct++
		}
	}

	return float64(correct) / float64(len(want))
}

// ClassMetrics are the per-label scores of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// Report mirrors the usual classification report layout: one entry per label
// plus accuracy, macro avg and weighted avg.
type Report map[string]any

// ClassificationReport scores predictions per label. Labels that are never
// predicted get a precision of 0.
func ClassificationReport(want, got []string) Report {
	labels := map[string]bool{}
	for _, v := range want {
		labels[v] = true
	}
	for _, v := range got {
		labels[v] = true
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	tp := map[string]int{}
	predicted := map[string]int{}
	support := map[string]int{}
	for i := range min(len(want), len(got)) {
		support[want[i]]++
		predicted[got[i]]++
		if want[i] == got[i] {
			tp[want[i]]++
		}
	}

	report := Report{}
	precision := make([]float64, len(names))
	recall := make([]float64, len(names))
	f1 := make([]float64, len(names))
	weights := make([]float64, len(names))
	for i, l := range names {
		m := ClassMetrics{Support: support[l]}
		if predicted[l] > 0 {
			m.Precision = float64(tp[l]) / float64(predicted[l])
		}
		if support[l] > 0 {
			m.Recall = float64(tp[l]) / float64(support[l])
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report[l] = m
		precision[i], recall[i], f1[i] = m.Precision, m.Recall, m.F1
		weights[i] = float64(m.Support)
	}

	total := floats.Sum(weights)
	report["accuracy"] = Accuracy(want, got)
	report["macro avg"] = ClassMetrics{
		Precision: mean(precision, nil),
		Recall:    mean(recall, nil),
		F1:        mean(f1, nil),
		Support:   int(total),
	}
	report["weighted avg"] = ClassMetrics{
		Precision: mean(precision, weights),
		Recall:    mean(recall, weights),
		F1:        mean(f1, weights),
		Support:   int(total),
	}

	return report
}

func mean(v, weights []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	if weights == nil {
		return floats.Sum(v) / float64(len(v))
	}
	total := floats.Sum(weights)
	if total == 0 {
		return 0
	}

	return floats.Dot(v, weights) / total
}

package intent

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// Model is a trained intent classifier: multinomial naive Bayes over
// unigram and bigram bag-of-words features with Laplace smoothing. Models
// are immutable after Train; retraining builds a fresh instance that is
// swapped in atomically by the Interpreter.
type Model struct {
	labels    []string // sorted so classification order is deterministic
	logPrior  map[string]float64
	logLik    map[string]map[string]float64
	logUnseen map[string]float64
}

// ErrNoSamples is returned by Train when the corpus is empty.
var ErrNoSamples = errors.New("intent: cannot train classifier without samples")

// features extracts lower-cased unigrams and bigrams from text.
func features(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	feats := make([]string, 0, len(words)*2)
	for i, w := range words {
		feats = append(feats, w)
		if i > 0 {
			feats = append(feats, words[i-1]+" "+w)
		}
	}
	return feats
}

// Train builds a model from the given samples. Samples with labels
// outside the supported set are skipped.
func Train(samples []Sample) (*Model, error) {
	counts := make(map[string]map[string]int)   // label -> feature -> count
	totals := make(map[string]int)              // label -> total feature count
	docs := make(map[string]int)                // label -> sample count
	vocab := make(map[string]struct{})
	totalDocs := 0

	for _, s := range samples {
		text := strings.TrimSpace(s.Text)
		if text == "" || !ValidLabel(s.Label) {
			continue
		}
		if counts[s.Label] == nil {
			counts[s.Label] = make(map[string]int)
		}
		for _, f := range features(text) {
			counts[s.Label][f]++
			totals[s.Label]++
			vocab[f] = struct{}{}
		}
		docs[s.Label]++
		totalDocs++
	}

	if totalDocs == 0 {
		return nil, ErrNoSamples
	}

	labels := make([]string, 0, len(docs))
	for label := range docs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	m := &Model{
		labels:    labels,
		logPrior:  make(map[string]float64, len(labels)),
		logLik:    make(map[string]map[string]float64, len(labels)),
		logUnseen: make(map[string]float64, len(labels)),
	}

	vocabSize := float64(len(vocab))
	for _, label := range labels {
		m.logPrior[label] = math.Log(float64(docs[label]) / float64(totalDocs))
		denom := float64(totals[label]) + vocabSize
		m.logUnseen[label] = math.Log(1 / denom)
		lik := make(map[string]float64, len(counts[label]))
		for f, c := range counts[label] {
			lik[f] = math.Log((float64(c) + 1) / denom)
		}
		m.logLik[label] = lik
	}
	return m, nil
}

// Classify returns the most likely label for text together with the
// posterior probability of that label. Empty input is a confident noop.
func (m *Model) Classify(text string) (string, float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return LabelNoop, 0
	}

	feats := features(text)
	scores := make([]float64, len(m.labels))
	for i, label := range m.labels {
		score := m.logPrior[label]
		lik := m.logLik[label]
		for _, f := range feats {
			if lp, ok := lik[f]; ok {
				score += lp
			} else {
				score += m.logUnseen[label]
			}
		}
		scores[i] = score
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	// Softmax over log scores for a probability-shaped confidence.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - scores[best])
	}
	return m.labels[best], 1 / sum
}

// Labels returns the labels the model was trained with, sorted.
func (m *Model) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

package engine

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pathlight/assessment-backend/internal/model"
)

// Skill-level labels for percent-correct tests.
const (
	ClassificationAdvanced     = "Advanced"
	ClassificationIntermediate = "Intermediate"
	ClassificationBeginner     = "Beginner"
)

// Thresholds are the global percent-correct cutoffs, overridable per test
// definition.
type Thresholds struct {
	Advanced     int
	Intermediate int
}

// Scorer converts a completed answer set into a ScoreResult. Scoring is
// deterministic given the same answers map regardless of the order pages
// were submitted or merged.
type Scorer struct {
	thresholds Thresholds
}

// NewScorer creates a Scorer with the given global thresholds.
func NewScorer(thresholds Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Compute scores a session against its definition. Answers missing from the
// map count as unanswered: incorrect for percent-correct tests, zero-weight
// for category averages.
func (sc *Scorer) Compute(def *model.TestDefinition, s *model.Session, now time.Time) *model.ScoreResult {
	result := &model.ScoreResult{
		SessionID:  s.ID,
		TestID:     def.ID,
		Mode:       def.ScoringMode,
		ComputedAt: now,
	}

	switch def.ScoringMode {
	case model.ScoringModeCategoryAverage:
		sc.computeCategoryAverage(def, s.Answers, result)
	case model.ScoringModePercentCorrect:
		sc.computePercentCorrect(def, s.Answers, result)
	}
	return result
}

// computeCategoryAverage maps the mean Likert answer of each category from
// the [1,5] scale onto [0,100]. Categories with no answered questions score
// zero and are flagged incomplete.
func (sc *Scorer) computeCategoryAverage(def *model.TestDefinition, answers map[string]string, result *model.ScoreResult) {
	categories := def.Categories()

	sums := make(map[string]int, len(categories))
	counts := make(map[string]int, len(categories))
	for i := range def.Pages {
		for j := range def.Pages[i].Questions {
			q := &def.Pages[i].Questions[j]
			raw, ok := answers[q.ID]
			if !ok || q.Category == "" {
				continue
			}
			value, err := strconv.Atoi(raw)
			if err != nil || value < model.LikertMin || value > model.LikertMax {
				continue // Stored answers are validated on submit; skip anything else.
			}
			sums[q.Category] += value
			counts[q.Category]++
		}
	}

	result.CategoryScores = make(map[string]model.CategoryScore, len(categories))
	for _, cat := range categories {
		if counts[cat] == 0 {
			result.CategoryScores[cat] = model.CategoryScore{Score: 0, Incomplete: true}
			continue
		}
		mean := float64(sums[cat]) / float64(counts[cat])
		score := int(math.Round(100 * (mean - model.LikertMin) / float64(model.LikertMax-model.LikertMin)))
		result.CategoryScores[cat] = model.CategoryScore{Score: score}
	}

	// Rank descending by score; ties keep the definition's declaration
	// order, which sort.SliceStable preserves.
	ranked := append([]string(nil), categories...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return result.CategoryScores[ranked[i]].Score > result.CategoryScores[ranked[j]].Score
	})
	result.RankedCategories = ranked
	if len(ranked) > 0 {
		result.Classification = ranked[0]
	}
}

// computePercentCorrect counts answers matching each question's correct
// option. Unanswered questions count as incorrect.
func (sc *Scorer) computePercentCorrect(def *model.TestDefinition, answers map[string]string, result *model.ScoreResult) {
	total := 0
	correct := 0
	for i := range def.Pages {
		for j := range def.Pages[i].Questions {
			q := &def.Pages[i].Questions[j]
			if q.Kind != model.AnswerKindMultipleChoice {
				continue
			}
			total++
			if answers[q.ID] == q.CorrectOptionID() {
				correct++
			}
		}
	}

	percent := 0
	if total > 0 {
		percent = int(math.Round(100 * float64(correct) / float64(total)))
	}

	result.PercentCorrect = &percent
	result.CorrectCount = correct
	result.TotalQuestions = total
	result.Classification = sc.classify(percent, def.Thresholds)
}

func (sc *Scorer) classify(percent int, overrides model.ClassificationThresholds) string {
	advanced := sc.thresholds.Advanced
	if overrides.Advanced > 0 {
		advanced = overrides.Advanced
	}
	intermediate := sc.thresholds.Intermediate
	if overrides.Intermediate > 0 {
		intermediate = overrides.Intermediate
	}

	switch {
	case percent >= advanced:
		return ClassificationAdvanced
	case percent >= intermediate:
		return ClassificationIntermediate
	default:
		return ClassificationBeginner
	}
}

package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/assessment-backend/internal/model"
)

func likertDef(categories ...string) *model.TestDefinition {
	def := &model.TestDefinition{
		ID:          "likert-test",
		Title:       "Likert Test",
		ScoringMode: model.ScoringModeCategoryAverage,
		Pages:       []model.Page{{Index: 1}},
	}
	for i, cat := range categories {
		def.Pages[0].Questions = append(def.Pages[0].Questions, model.Question{
			ID:       questionID(i),
			Prompt:   "q",
			Category: cat,
			Kind:     model.AnswerKindLikert,
		})
	}
	return def
}

func questionID(i int) string {
	return "q" + string(rune('a'+i))
}

func choiceDef(total int, thresholds model.ClassificationThresholds) *model.TestDefinition {
	def := &model.TestDefinition{
		ID:          "choice-test",
		Title:       "Choice Test",
		ScoringMode: model.ScoringModePercentCorrect,
		Thresholds:  thresholds,
		Pages:       []model.Page{{Index: 1}},
	}
	for i := 0; i < total; i++ {
		def.Pages[0].Questions = append(def.Pages[0].Questions, model.Question{
			ID:     questionID(i),
			Prompt: "q",
			Kind:   model.AnswerKindMultipleChoice,
			Options: []model.Option{
				{ID: "right", Text: "right", Correct: true},
				{ID: "wrong", Text: "wrong"},
			},
		})
	}
	return def
}

func sessionWith(answers map[string]string) *model.Session {
	return &model.Session{ID: uuid.New(), Answers: answers}
}

func defaultScorer() *Scorer {
	return NewScorer(Thresholds{Advanced: 80, Intermediate: 50})
}

func TestCompute_CategoryAverage_SingleAnsweredCategory(t *testing.T) {
	// Ten categories, answers only in the first, all at the maximum.
	categories := make([]string, 10)
	for i := range categories {
		categories[i] = "cat" + string(rune('A'+i))
	}
	def := likertDef(categories...)

	res := defaultScorer().Compute(def, sessionWith(map[string]string{
		questionID(0): "5",
	}), time.Now())

	require.Len(t, res.CategoryScores, 10)
	assert.Equal(t, model.CategoryScore{Score: 100}, res.CategoryScores["catA"])
	for _, cat := range categories[1:] {
		assert.Equal(t, model.CategoryScore{Score: 0, Incomplete: true}, res.CategoryScores[cat])
	}
	assert.Equal(t, "catA", res.Classification)
	assert.Equal(t, "catA", res.RankedCategories[0])
}

func TestCompute_CategoryAverage_MeanMapping(t *testing.T) {
	def := likertDef("X", "X")
	sc := defaultScorer()

	cases := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},   // mean 1.0
		{"3", "3", 50},  // mean 3.0
		{"5", "5", 100}, // mean 5.0
		{"2", "4", 50},  // mean 3.0
		{"4", "5", 88},  // mean 4.5 -> 87.5 rounds up
	}
	for _, tc := range cases {
		res := sc.Compute(def, sessionWith(map[string]string{
			questionID(0): tc.a,
			questionID(1): tc.b,
		}), time.Now())
		assert.Equal(t, tc.want, res.CategoryScores["X"].Score, "answers %s,%s", tc.a, tc.b)
	}
}

func TestCompute_CategoryAverage_TiesKeepDeclarationOrder(t *testing.T) {
	def := likertDef("First", "Second", "Third")
	answers := map[string]string{
		questionID(0): "4",
		questionID(1): "4",
		questionID(2): "4",
	}

	res := defaultScorer().Compute(def, sessionWith(answers), time.Now())
	assert.Equal(t, []string{"First", "Second", "Third"}, res.RankedCategories)
	assert.Equal(t, "First", res.Classification)

	// Identical input always yields the identical ranking.
	again := defaultScorer().Compute(def, sessionWith(answers), time.Now())
	assert.Equal(t, res.RankedCategories, again.RankedCategories)
	assert.Equal(t, res.CategoryScores, again.CategoryScores)
}

func TestCompute_PercentCorrect_CountsAndClassifies(t *testing.T) {
	def := choiceDef(20, model.ClassificationThresholds{})
	sc := defaultScorer()

	answers := make(map[string]string)
	for i := 0; i < 15; i++ {
		answers[questionID(i)] = "right"
	}
	// Three wrong, two unanswered; both count as incorrect.
	answers[questionID(15)] = "wrong"
	answers[questionID(16)] = "wrong"
	answers[questionID(17)] = "wrong"

	res := sc.Compute(def, sessionWith(answers), time.Now())
	require.NotNil(t, res.PercentCorrect)
	assert.Equal(t, 75, *res.PercentCorrect)
	assert.Equal(t, 15, res.CorrectCount)
	assert.Equal(t, 20, res.TotalQuestions)
	assert.Equal(t, ClassificationIntermediate, res.Classification)
}

func TestCompute_PercentCorrect_ThresholdBoundaries(t *testing.T) {
	def := choiceDef(10, model.ClassificationThresholds{})
	sc := defaultScorer()

	cases := []struct {
		correct int
		want    string
	}{
		{10, ClassificationAdvanced},
		{8, ClassificationAdvanced}, // exactly at the cutoff
		{7, ClassificationIntermediate},
		{5, ClassificationIntermediate},
		{4, ClassificationBeginner},
		{0, ClassificationBeginner},
	}
	for _, tc := range cases {
		answers := make(map[string]string)
		for i := 0; i < tc.correct; i++ {
			answers[questionID(i)] = "right"
		}
		res := sc.Compute(def, sessionWith(answers), time.Now())
		assert.Equal(t, tc.want, res.Classification, "%d correct of 10", tc.correct)
	}
}

func TestCompute_PercentCorrect_DefinitionThresholdOverrides(t *testing.T) {
	def := choiceDef(10, model.ClassificationThresholds{Advanced: 90, Intermediate: 60})
	sc := defaultScorer()

	answers := make(map[string]string)
	for i := 0; i < 8; i++ {
		answers[questionID(i)] = "right"
	}

	// 80% clears the global cutoff but not the definition's override.
	res := sc.Compute(def, sessionWith(answers), time.Now())
	assert.Equal(t, ClassificationIntermediate, res.Classification)
}

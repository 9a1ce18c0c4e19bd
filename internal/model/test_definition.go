package model

// ScoringMode selects how a completed answer set is scored.
type ScoringMode string

const (
	// ScoringModeCategoryAverage averages Likert answers per category and
	// maps them onto a 0-100 scale (personality-style tests).
	ScoringModeCategoryAverage ScoringMode = "CATEGORY_AVERAGE"
	// ScoringModePercentCorrect counts correct multiple-choice answers
	// (knowledge-style tests).
	ScoringModePercentCorrect ScoringMode = "PERCENT_CORRECT"
)

// AnswerKind enumerates supported answer spaces.
type AnswerKind string

const (
	AnswerKindLikert         AnswerKind = "LIKERT"
	AnswerKindMultipleChoice AnswerKind = "MULTIPLE_CHOICE"
)

// Likert scale bounds.
const (
	LikertMin = 1
	LikertMax = 5
)

// Option is a selectable choice of a multiple-choice question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question is a single question inside a test definition.
type Question struct {
	ID       string     `json:"id"`
	Prompt   string     `json:"prompt"`
	Category string     `json:"category,omitempty"`
	Kind     AnswerKind `json:"kind"`
	Options  []Option   `json:"options,omitempty"`
}

// CorrectOptionID returns the id of the option marked correct, or "" for
// Likert questions.
func (q *Question) CorrectOptionID() string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// HasOption reports whether the given option id belongs to this question.
func (q *Question) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Page is a fixed, ordered subset of a test's questions, submitted together.
// Index is 1-based and contiguous within a definition.
type Page struct {
	Index     int        `json:"index"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// ClassificationThresholds are the percent-correct cutoffs for skill levels.
// Zero values fall back to the globally configured thresholds.
type ClassificationThresholds struct {
	Advanced     int `json:"advanced,omitempty"`
	Intermediate int `json:"intermediate,omitempty"`
}

// TestDefinition is an immutable, versioned catalog entry loaded at startup.
type TestDefinition struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ScoringMode ScoringMode `json:"scoring_mode"`

	// DurationSeconds is the time limit for the whole session. Zero means
	// the test is untimed.
	DurationSeconds int `json:"duration_seconds,omitempty"`

	Pages []Page `json:"pages"`

	// Thresholds optionally override the global skill-level cutoffs for
	// percent-correct tests.
	Thresholds ClassificationThresholds `json:"thresholds,omitempty"`

	// AllowDefaultFill is parsed and surfaced to clients but never applied
	// by the engine: incomplete page submissions are always rejected, and
	// any default-filling happens in the UI layer.
	AllowDefaultFill bool `json:"allow_default_fill,omitempty"`
}

// TotalPages returns the number of pages.
func (d *TestDefinition) TotalPages() int {
	return len(d.Pages)
}

// TotalQuestions returns the question count across all pages.
func (d *TestDefinition) TotalQuestions() int {
	n := 0
	for i := range d.Pages {
		n += len(d.Pages[i].Questions)
	}
	return n
}

// PageAt returns the page with the given 1-based index, or nil if out of range.
func (d *TestDefinition) PageAt(index int) *Page {
	if index < 1 || index > len(d.Pages) {
		return nil
	}
	return &d.Pages[index-1]
}

// QuestionByID looks a question up across all pages.
func (d *TestDefinition) QuestionByID(id string) *Question {
	for i := range d.Pages {
		for j := range d.Pages[i].Questions {
			if d.Pages[i].Questions[j].ID == id {
				return &d.Pages[i].Questions[j]
			}
		}
	}
	return nil
}

// Categories returns the distinct categories in declaration order, which is
// the tie-break order for ranked scoring.
func (d *TestDefinition) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range d.Pages {
		for j := range d.Pages[i].Questions {
			cat := d.Pages[i].Questions[j].Category
			if cat == "" {
				continue
			}
			if _, ok := seen[cat]; !ok {
				seen[cat] = struct{}{}
				out = append(out, cat)
			}
		}
	}
	return out
}

package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

// Lookup errors. Both are client errors and never retried.
var (
	ErrTestNotFound   = errors.New("test definition not found")
	ErrPageOutOfRange = errors.New("page index out of range")
)

// QuestionBank is an immutable catalog of test definitions loaded at
// startup. It is safe for unlimited concurrent readers: nothing mutates it
// after Load returns.
type QuestionBank struct {
	definitions map[string]*model.TestDefinition
	ordered     []*model.TestDefinition
}

// Load reads every *.json file in dir as a test definition and validates it.
// A single malformed definition fails the whole load: a partially usable
// bank would let sessions start against tests that can never be scored.
func Load(dir string, log zerolog.Logger) (*QuestionBank, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read bank dir: %w", err)
	}

	b := &QuestionBank{definitions: make(map[string]*model.TestDefinition)}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		var def model.TestDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}

		if err := validate(&def); err != nil {
			return nil, fmt.Errorf("validate %s: %w", entry.Name(), err)
		}

		if _, dup := b.definitions[def.ID]; dup {
			return nil, fmt.Errorf("duplicate test definition id %q", def.ID)
		}

		b.definitions[def.ID] = &def
		b.ordered = append(b.ordered, &def)

		log.Info().
			Str("test_id", def.ID).
			Str("mode", string(def.ScoringMode)).
			Int("pages", def.TotalPages()).
			Int("questions", def.TotalQuestions()).
			Msg("Test definition loaded")
	}

	if len(b.ordered) == 0 {
		return nil, fmt.Errorf("no test definitions found in %s", dir)
	}

	sort.Slice(b.ordered, func(i, j int) bool { return b.ordered[i].ID < b.ordered[j].ID })
	return b, nil
}

// GetDefinition returns the definition for the given test id.
func (b *QuestionBank) GetDefinition(testID string) (*model.TestDefinition, error) {
	def, ok := b.definitions[testID]
	if !ok {
		return nil, ErrTestNotFound
	}
	return def, nil
}

// GetPage returns the 1-based page of a test. Index 0, an index past the
// last page, and an unknown test id all yield ErrPageOutOfRange for unknown
// pages and ErrTestNotFound for unknown tests.
func (b *QuestionBank) GetPage(testID string, pageIndex int) (*model.Page, error) {
	def, ok := b.definitions[testID]
	if !ok {
		return nil, ErrTestNotFound
	}
	page := def.PageAt(pageIndex)
	if page == nil {
		return nil, ErrPageOutOfRange
	}
	return page, nil
}

// List returns summaries of all definitions, ordered by id.
func (b *QuestionBank) List() []model.TestSummary {
	out := make([]model.TestSummary, 0, len(b.ordered))
	for _, def := range b.ordered {
		out = append(out, model.TestSummary{
			ID:               def.ID,
			Title:            def.Title,
			Description:      def.Description,
			ScoringMode:      def.ScoringMode,
			TotalQuestions:   def.TotalQuestions(),
			TotalPages:       def.TotalPages(),
			DurationSeconds:  def.DurationSeconds,
			AllowDefaultFill: def.AllowDefaultFill,
		})
	}
	return out
}

// validate enforces the structural invariants a definition must satisfy
// before any session may run against it.
func validate(def *model.TestDefinition) error {
	if def.ID == "" {
		return errors.New("missing id")
	}
	if def.Title == "" {
		return errors.New("missing title")
	}
	if def.ScoringMode != model.ScoringModeCategoryAverage && def.ScoringMode != model.ScoringModePercentCorrect {
		return fmt.Errorf("unknown scoring mode %q", def.ScoringMode)
	}
	if def.DurationSeconds < 0 {
		return errors.New("negative duration")
	}
	if len(def.Pages) == 0 {
		return errors.New("no pages")
	}

	seen := make(map[string]struct{})
	for i := range def.Pages {
		page := &def.Pages[i]
		if page.Index != i+1 {
			return fmt.Errorf("page %d has index %d, want contiguous 1-based indices", i+1, page.Index)
		}
		if len(page.Questions) == 0 {
			return fmt.Errorf("page %d has no questions", page.Index)
		}
		for j := range page.Questions {
			if err := validateQuestion(def, &page.Questions[j], seen); err != nil {
				return fmt.Errorf("page %d: %w", page.Index, err)
			}
		}
	}
	return nil
}

func validateQuestion(def *model.TestDefinition, q *model.Question, seen map[string]struct{}) error {
	if q.ID == "" {
		return errors.New("question missing id")
	}
	if _, dup := seen[q.ID]; dup {
		return fmt.Errorf("duplicate question id %q", q.ID)
	}
	seen[q.ID] = struct{}{}

	if q.Prompt == "" {
		return fmt.Errorf("question %q missing prompt", q.ID)
	}

	switch q.Kind {
	case model.AnswerKindLikert:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: likert questions carry no options", q.ID)
		}
		if def.ScoringMode == model.ScoringModeCategoryAverage && q.Category == "" {
			return fmt.Errorf("question %q: category required for category-average scoring", q.ID)
		}
	case model.AnswerKindMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %q: at least two options required", q.ID)
		}
		correct := 0
		optIDs := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if opt.ID == "" {
				return fmt.Errorf("question %q: option missing id", q.ID)
			}
			if _, dup := optIDs[opt.ID]; dup {
				return fmt.Errorf("question %q: duplicate option id %q", q.ID, opt.ID)
			}
			optIDs[opt.ID] = struct{}{}
			if opt.Correct {
				correct++
			}
		}
		if def.ScoringMode == model.ScoringModePercentCorrect && correct != 1 {
			return fmt.Errorf("question %q: exactly one correct option required, found %d", q.ID, correct)
		}
	default:
		return fmt.Errorf("question %q: unknown answer kind %q", q.ID, q.Kind)
	}
	return nil
}

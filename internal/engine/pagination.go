package engine

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/pathlight/assessment-backend/internal/store"
)

// FetchPage returns one page of questions merged with the answers already
// submitted for it. Pages up to current_page may be revisited freely;
// fetching never mutates the session.
func (e *Engine) FetchPage(ctx context.Context, sessionID, ownerID uuid.UUID, page int) (*model.PageView, error) {
	s, err := e.getOwned(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	def, err := e.bank.GetDefinition(s.TestID)
	if err != nil {
		return nil, err
	}

	p := def.PageAt(page)
	if p == nil {
		return nil, bank.ErrPageOutOfRange
	}
	if page > s.CurrentPage {
		return nil, ErrPageNotReady
	}

	view := &model.PageView{
		SessionID:   s.ID,
		Page:        page,
		TotalPages:  def.TotalPages(),
		CurrentPage: s.CurrentPage,
		Title:       p.Title,
		Questions:   make([]model.QuestionView, 0, len(p.Questions)),
		Answers:     make(map[string]string),
	}
	for i := range p.Questions {
		q := &p.Questions[i]
		view.Questions = append(view.Questions, questionView(q))
		if value, ok := s.Answers[q.ID]; ok {
			view.Answers[q.ID] = value
		}
	}
	if s.State == model.SessionStateActive {
		view.RemainingSeconds = s.RemainingSeconds(e.now())
	}
	return view, nil
}

// SubmitPage records the answers for the session's current page and
// advances it. Accepting the last page claims the session and scores it in
// the same call. A lost version race is retried once against fresh state;
// a second loss surfaces ErrConflict.
func (e *Engine) SubmitPage(ctx context.Context, sessionID, ownerID uuid.UUID, req *model.SubmitPageRequest) (*model.SubmitResult, error) {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := e.getOwned(ctx, sessionID, ownerID)
		if err != nil {
			return nil, err
		}

		def, err := e.bank.GetDefinition(s.TestID)
		if err != nil {
			return nil, err
		}

		if s.State != model.SessionStateActive {
			return nil, ErrSessionNotActive
		}
		if s.Expired(e.now()) {
			// The deadline passed but the timer has not fired yet.
			// Settle now rather than accept a late submission.
			if err := e.ExpireSession(ctx, sessionID); err != nil {
				e.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Inline expiry failed")
			}
			return nil, ErrSessionNotActive
		}
		if req.Page != s.CurrentPage {
			return nil, ErrWrongPage
		}

		page := def.PageAt(req.Page)
		if page == nil {
			return nil, bank.ErrPageOutOfRange
		}

		submitted, err := validatePageAnswers(page, req.Answers)
		if err != nil {
			return nil, err
		}

		next := s.Clone()
		for id, value := range submitted {
			next.Answers[id] = value
		}
		next.CurrentPage = s.CurrentPage + 1

		lastPage := req.Page == def.TotalPages()
		if lastPage {
			next.State = model.SessionStateManuallySubmitted
		}

		err = e.store.CompareAndSwap(ctx, s.Version, next)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if !lastPage {
			return &model.SubmitResult{
				SessionID:   s.ID,
				State:       next.State,
				CurrentPage: next.CurrentPage,
			}, nil
		}

		if err := e.settleClaimed(ctx, next); err != nil {
			return nil, err
		}
		return &model.SubmitResult{
			SessionID:   s.ID,
			State:       model.SessionStateScored,
			CurrentPage: next.CurrentPage,
			Completed:   true,
		}, nil
	}
	return nil, ErrConflict
}

// validatePageAnswers checks a submission against the page it targets:
// every answer must belong to the page and fall inside its question's
// answer space, and every Likert question on the page must be covered.
// Unanswered multiple-choice questions are allowed and score as incorrect.
func validatePageAnswers(page *model.Page, answers []model.SubmitAnswer) (map[string]string, error) {
	questions := make(map[string]*model.Question, len(page.Questions))
	for i := range page.Questions {
		questions[page.Questions[i].ID] = &page.Questions[i]
	}

	submitted := make(map[string]string, len(answers))
	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			return nil, ErrInvalidAnswer
		}
		if _, dup := submitted[a.QuestionID]; dup {
			return nil, ErrInvalidAnswer
		}

		switch q.Kind {
		case model.AnswerKindLikert:
			value, err := strconv.Atoi(a.Value)
			if err != nil || value < model.LikertMin || value > model.LikertMax {
				return nil, ErrInvalidAnswer
			}
		case model.AnswerKindMultipleChoice:
			if !q.HasOption(a.Value) {
				return nil, ErrInvalidAnswer
			}
		}
		submitted[a.QuestionID] = a.Value
	}

	for i := range page.Questions {
		q := &page.Questions[i]
		if q.Kind != model.AnswerKindLikert {
			continue
		}
		if _, ok := submitted[q.ID]; !ok {
			return nil, ErrIncompleteAnswers
		}
	}
	return submitted, nil
}

func questionView(q *model.Question) model.QuestionView {
	view := model.QuestionView{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Category: q.Category,
		Kind:     q.Kind,
	}
	if len(q.Options) > 0 {
		view.Options = make([]model.Option, len(q.Options))
		for i, opt := range q.Options {
			view.Options[i] = model.Option{ID: opt.ID, Text: opt.Text}
		}
	}
	return view
}

package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/pathlight/assessment-backend/internal/store"
)

// newTestEngine loads the testdata definitions into a fresh memory store.
// The returned clock pointer controls the engine's view of time.
func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *time.Time) {
	t.Helper()

	b, err := bank.Load("testdata", zerolog.Nop())
	require.NoError(t, err)

	st := store.NewMemoryStore()
	eng := NewEngine(b, st, defaultScorer(), nil, nil, zerolog.Nop())

	clock := time.Now()
	eng.now = func() time.Time { return clock }
	return eng, st, &clock
}

func likertPage1() *model.SubmitPageRequest {
	return &model.SubmitPageRequest{Page: 1, Answers: []model.SubmitAnswer{
		{QuestionID: "p1", Value: "5"},
		{QuestionID: "p2", Value: "3"},
		{QuestionID: "p3", Value: "4"},
	}}
}

func likertPage2() *model.SubmitPageRequest {
	return &model.SubmitPageRequest{Page: 2, Answers: []model.SubmitAnswer{
		{QuestionID: "p4", Value: "2"},
		{QuestionID: "p5", Value: "1"},
	}}
}

func TestStart_CreatesThenResumes(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	first, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	assert.False(t, first.Resumed)
	assert.Equal(t, 5, first.TotalQuestions)
	assert.Equal(t, 2, first.TotalPages)

	second, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	assert.True(t, second.Resumed)
	assert.Equal(t, first.SessionID, second.SessionID)

	// A different owner gets a session of their own.
	other, err := eng.Start(ctx, "traits-mini", uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, other.SessionID)
}

func TestStart_UnknownTest(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.Start(context.Background(), "nope", uuid.New())
	assert.ErrorIs(t, err, bank.ErrTestNotFound)
}

func TestSubmitPage_FullRunScoresSession(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	sid := started.SessionID

	res, err := eng.SubmitPage(ctx, sid, owner, likertPage1())
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateActive, res.State)
	assert.Equal(t, 2, res.CurrentPage)
	assert.False(t, res.Completed)

	// Revisiting the submitted page shows the stored answers and never
	// moves current_page.
	view, err := eng.FetchPage(ctx, sid, owner, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, view.CurrentPage)
	assert.Equal(t, "5", view.Answers["p1"])
	for _, q := range view.Questions {
		assert.Empty(t, q.Options)
	}

	res, err = eng.SubmitPage(ctx, sid, owner, likertPage2())
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, model.SessionStateScored, res.State)

	result, err := eng.FinalizeResult(ctx, sid, owner)
	require.NoError(t, err)
	// Focus: (5+4)/2 -> 87.5 -> 88. Drive: (3+2)/2 -> 37.5 -> 38. Social: 1 -> 0.
	assert.Equal(t, 88, result.CategoryScores["Focus"].Score)
	assert.Equal(t, 38, result.CategoryScores["Drive"].Score)
	assert.Equal(t, 0, result.CategoryScores["Social"].Score)
	assert.Equal(t, "Focus", result.Classification)

	// Repeated reads return the same settled result.
	again, err := eng.FinalizeResult(ctx, sid, owner)
	require.NoError(t, err)
	assert.Equal(t, result.ComputedAt, again.ComputedAt)
	assert.Equal(t, result.CategoryScores, again.CategoryScores)

	// The session is immutable now.
	_, err = eng.SubmitPage(ctx, sid, owner, likertPage2())
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSubmitPage_RejectsIncompleteLikertPage(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)

	req := &model.SubmitPageRequest{Page: 1, Answers: []model.SubmitAnswer{
		{QuestionID: "p1", Value: "5"},
	}}
	_, err = eng.SubmitPage(ctx, started.SessionID, owner, req)
	assert.ErrorIs(t, err, ErrIncompleteAnswers)

	// The rejected submission left nothing behind.
	view, err := eng.FetchPage(ctx, started.SessionID, owner, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentPage)
	assert.Empty(t, view.Answers)
}

func TestSubmitPage_RejectsInvalidAnswers(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	sid := started.SessionID

	cases := []struct {
		name    string
		answers []model.SubmitAnswer
	}{
		{"likert out of range", []model.SubmitAnswer{
			{QuestionID: "p1", Value: "7"},
			{QuestionID: "p2", Value: "3"},
			{QuestionID: "p3", Value: "4"},
		}},
		{"likert not a number", []model.SubmitAnswer{
			{QuestionID: "p1", Value: "agree"},
			{QuestionID: "p2", Value: "3"},
			{QuestionID: "p3", Value: "4"},
		}},
		{"question from another page", []model.SubmitAnswer{
			{QuestionID: "p4", Value: "3"},
			{QuestionID: "p2", Value: "3"},
			{QuestionID: "p3", Value: "4"},
		}},
		{"duplicate question", []model.SubmitAnswer{
			{QuestionID: "p1", Value: "5"},
			{QuestionID: "p1", Value: "1"},
			{QuestionID: "p2", Value: "3"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.SubmitPage(ctx, sid, owner, &model.SubmitPageRequest{Page: 1, Answers: tc.answers})
			assert.ErrorIs(t, err, ErrInvalidAnswer)
		})
	}
}

func TestSubmitPage_WrongPage(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)

	_, err = eng.SubmitPage(ctx, started.SessionID, owner, likertPage2())
	assert.ErrorIs(t, err, ErrWrongPage)
}

func TestFetchPage_Bounds(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)

	_, err = eng.FetchPage(ctx, started.SessionID, owner, 2)
	assert.ErrorIs(t, err, ErrPageNotReady)

	_, err = eng.FetchPage(ctx, started.SessionID, owner, 99)
	assert.ErrorIs(t, err, bank.ErrPageOutOfRange)

	_, err = eng.FetchPage(ctx, started.SessionID, owner, 0)
	assert.ErrorIs(t, err, bank.ErrPageOutOfRange)
}

func TestOwnership_ForeignSessionReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)

	stranger := uuid.New()
	_, err = eng.FetchPage(ctx, started.SessionID, stranger, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = eng.SubmitPage(ctx, started.SessionID, stranger, likertPage1())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = eng.FinalizeResult(ctx, started.SessionID, stranger)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpireSession_ScoresPartialAnswers(t *testing.T) {
	ctx := context.Background()
	eng, st, clock := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)
	sid := started.SessionID

	// Answer page 1: one correct, one wrong.
	_, err = eng.SubmitPage(ctx, sid, owner, &model.SubmitPageRequest{Page: 1, Answers: []model.SubmitAnswer{
		{QuestionID: "k1", Value: "b"},
		{QuestionID: "k2", Value: "a"},
	}})
	require.NoError(t, err)

	_, err = eng.FinalizeResult(ctx, sid, owner)
	assert.ErrorIs(t, err, ErrResultNotReady)

	*clock = clock.Add(3 * time.Minute)
	require.NoError(t, eng.ExpireSession(ctx, sid))

	result, err := eng.FinalizeResult(ctx, sid, owner)
	require.NoError(t, err)
	require.NotNil(t, result.PercentCorrect)
	// 1 of 4 correct; the unanswered second page counts as incorrect.
	assert.Equal(t, 25, *result.PercentCorrect)
	assert.Equal(t, ClassificationBeginner, result.Classification)

	// Re-driving the settled session changes nothing.
	require.NoError(t, eng.ExpireSession(ctx, sid))
	s, err := st.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateScored, s.State)
	assert.Equal(t, result.ComputedAt, s.Result.ComputedAt)
}

func TestExpireSession_RecoversClaimedSession(t *testing.T) {
	ctx := context.Background()
	eng, st, clock := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)
	sid := started.SessionID

	// Simulate a crash after the claim swap but before scoring.
	s, err := st.Get(ctx, sid)
	require.NoError(t, err)
	claimed := s.Clone()
	claimed.State = model.SessionStateAutoSubmitted
	require.NoError(t, st.CompareAndSwap(ctx, s.Version, claimed))

	*clock = clock.Add(3 * time.Minute)
	require.NoError(t, eng.ExpireSession(ctx, sid))

	recovered, err := st.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateScored, recovered.State)
	require.NotNil(t, recovered.Result)
}

func TestSettle_ConcurrentFinalizersScoreExactlyOnce(t *testing.T) {
	ctx := context.Background()
	eng, st, clock := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)
	sid := started.SessionID

	_, err = eng.SubmitPage(ctx, sid, owner, &model.SubmitPageRequest{Page: 1, Answers: []model.SubmitAnswer{
		{QuestionID: "k1", Value: "b"},
		{QuestionID: "k2", Value: "a"},
	}})
	require.NoError(t, err)

	*clock = clock.Add(3 * time.Minute)
	require.NoError(t, eng.ExpireSession(ctx, sid))

	winner, err := st.Get(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, model.SessionStateScored, winner.State)
	require.NotNil(t, winner.Result)

	// A second finalizer that claimed the session before the winner's
	// swap landed now settles with a stale version. Its swap must lose,
	// and after re-reading the scored session it defers without error.
	stale := winner.Clone()
	stale.State = model.SessionStateAutoSubmitted
	stale.Result = nil
	stale.Version = winner.Version - 1
	require.NoError(t, eng.settleClaimed(ctx, stale))

	final, err := st.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, winner.Version, final.Version)
	require.NotNil(t, final.Result)
	assert.Equal(t, winner.Result.ComputedAt, final.Result.ComputedAt)

	// The loser's caller sees the winner's result.
	res, err := eng.FinalizeResult(ctx, sid, owner)
	require.NoError(t, err)
	require.NotNil(t, res.PercentCorrect)
	assert.Equal(t, 25, *res.PercentCorrect)
}

func TestSubmitPage_AfterDeadlineSettlesAndRejects(t *testing.T) {
	ctx := context.Background()
	eng, st, clock := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)
	sid := started.SessionID

	*clock = clock.Add(3 * time.Minute)
	_, err = eng.SubmitPage(ctx, sid, owner, &model.SubmitPageRequest{Page: 1, Answers: []model.SubmitAnswer{
		{QuestionID: "k1", Value: "b"},
	}})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	s, err := st.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateScored, s.State)
}

func TestStart_AfterDeadlineSettlesOldAndCreatesNew(t *testing.T) {
	ctx := context.Background()
	eng, st, clock := newTestEngine(t)
	owner := uuid.New()

	first, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)

	*clock = clock.Add(3 * time.Minute)
	second, err := eng.Start(ctx, "go-basics", owner)
	require.NoError(t, err)
	assert.False(t, second.Resumed)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	old, err := st.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateScored, old.State)
}

func TestAbort_IsIdempotentAndYieldsNoResult(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	sid := started.SessionID

	require.NoError(t, eng.Abort(ctx, sid, owner))
	require.NoError(t, eng.Abort(ctx, sid, owner))

	_, err = eng.FinalizeResult(ctx, sid, owner)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = eng.SubmitPage(ctx, sid, owner, likertPage1())
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestAttachDemographics(t *testing.T) {
	ctx := context.Background()
	eng, st, _ := newTestEngine(t)
	owner := uuid.New()

	started, err := eng.Start(ctx, "traits-mini", owner)
	require.NoError(t, err)
	sid := started.SessionID

	payload := json.RawMessage(`{"age_range":"25-34","field":"engineering"}`)
	require.NoError(t, eng.AttachDemographics(ctx, sid, owner, payload))

	s, err := st.Get(ctx, sid)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(s.Demographics))

	require.NoError(t, eng.Abort(ctx, sid, owner))
	err = eng.AttachDemographics(ctx, sid, owner, payload)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

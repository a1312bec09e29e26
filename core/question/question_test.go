package question_test

import (
	"testing"
	"time"

	"github.com/goto/sieve/core/question"
	"github.com/goto/sieve/core/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_Validate(t *testing.T) {
	cases := []struct {
		Description string
		Question    *question.Question
		Err         error
		ErrString   string
	}{
		{
			Description: "nil question is invalid",
			Err:         question.ErrNilQuestion,
		},
		{
			Description: "answers and flags must be parallel",
			Question:    &question.Question{Title: "q", Answers: []string{"a", "b"}, Correct: []bool{true}},
			Err:         question.AnswerMismatchError{Answers: 2, Flags: 1},
		},
		{
			Description: "title is required",
			Question:    &question.Question{},
			ErrString:   "title is required",
		},
		{
			Description: "valid question",
			Question:    &question.Question{Title: "q", Answers: []string{"a"}, Correct: []bool{false}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.Description, func(t *testing.T) {
			err := tc.Question.Validate()
			switch {
			case tc.Err != nil:
				assert.ErrorIs(t, err, tc.Err)
			case tc.ErrString != "":
				assert.EqualError(t, err, tc.ErrString)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuestion_NilIsEmptyRecord(t *testing.T) {
	var q *question.Question
	assert.Equal(t, "", q.GetTitle())
	assert.Equal(t, "", q.GetText())
	assert.True(t, q.GetCreatedAt().IsZero())
	assert.Empty(t, q.CorrectAnswers())
}

func TestQuestion_CorrectAnswers(t *testing.T) {
	q := &question.Question{
		Title:   "capital of france",
		Answers: []string{"Lyon", "Paris", "Nice"},
		Correct: []bool{false, true, false},
	}
	assert.Equal(t, []string{"Paris"}, q.CorrectAnswers())
}

func TestPredicates(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	qs := []*question.Question{
		{Title: "a", Topic: "Geography", Answers: []string{"x"}, Correct: []bool{true}, CreatedAt: now},
		{Title: "b", Topic: "history", Answers: []string{"x"}, Correct: []bool{false}, CreatedAt: now},
		{Title: "c", Topic: "geography", CreatedAt: now},
	}

	got := view.FilterSequence(view.NewFilterCriteria(view.WithPredicates(question.ByTopic("geography"))), qs)
	assert.Equal(t, []*question.Question{qs[0], qs[2]}, got)

	got = view.FilterSequence(view.NewFilterCriteria(
		view.WithPredicates(question.ByTopic("geography"), question.HasCorrectAnswer()),
	), qs)
	assert.Equal(t, []*question.Question{qs[0]}, got)
}

func TestRegister(t *testing.T) {
	reg := view.NewRegistry()
	require.NoError(t, question.Register(reg))

	_, ok := reg.Predicate("has-correct-answer")
	assert.True(t, ok)

	qs := []*question.Question{
		{Title: "a", Topic: "Geography"},
		{Title: "b", Topic: "history"},
	}
	p, ok := reg.Predicate("topic:geography")
	require.True(t, ok)
	assert.Equal(t, "topic:geography", p.Name)
	assert.True(t, p.Match(qs[0]))
	assert.False(t, p.Match(qs[1]))

	p, ok = reg.Predicate("topic:astronomy")
	require.True(t, ok)
	assert.False(t, p.Match(qs[0]))

	_, ok = reg.Predicate("topic:")
	assert.False(t, ok)

	assert.ErrorIs(t, question.Register(reg), view.ErrDuplicateRegistered)
}

func TestRegister_RestoresTopicFilterWithoutLoadedTopic(t *testing.T) {
	saved := view.NewFilterCriteria(
		view.WithText("capital"),
		view.WithPredicates(question.ByTopic("History"), question.HasCorrectAnswer()),
	)

	reg := view.NewRegistry()
	require.NoError(t, question.Register(reg))

	restored, err := saved.State().Criteria(reg)
	require.NoError(t, err)
	assert.True(t, restored.Equal(saved))

	qs := []*question.Question{
		{Title: "a", Text: "capital of rome", Topic: "history", Answers: []string{"x"}, Correct: []bool{true}},
		{Title: "b", Text: "capital of peru", Topic: "geography", Answers: []string{"x"}, Correct: []bool{true}},
	}
	assert.Equal(t, []*question.Question{qs[0]}, view.FilterSequence(restored, qs))
}

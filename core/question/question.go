package question

import (
	"strings"
	"time"

	"github.com/goto/sieve/core/validator"
	"github.com/goto/sieve/core/view"
)

// Question is a quiz question. Answers and Correct are parallel: Correct[i]
// tells whether Answers[i] is a right answer.
type Question struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title" validate:"required"`
	Text      string    `json:"text" yaml:"text"`
	Answers   []string  `json:"answers" yaml:"answers"`
	Correct   []bool    `json:"correct" yaml:"correct"`
	Topic     string    `json:"topic" yaml:"topic"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

var _ view.Record = (*Question)(nil)

func (q *Question) GetTitle() string {
	if q == nil {
		return ""
	}
	return q.Title
}

func (q *Question) GetText() string {
	if q == nil {
		return ""
	}
	return q.Text
}

func (q *Question) GetCreatedAt() time.Time {
	if q == nil {
		return time.Time{}
	}
	return q.CreatedAt
}

func (q *Question) Validate() error {
	if q == nil {
		return ErrNilQuestion
	}
	// the validator only reports strings, callers match on the mismatch type
	if len(q.Answers) != len(q.Correct) {
		return AnswerMismatchError{Answers: len(q.Answers), Flags: len(q.Correct)}
	}
	return validator.ValidateStruct(q)
}

// CorrectAnswers returns the answers flagged as correct. A nil question has
// none.
func (q *Question) CorrectAnswers() []string {
	if q == nil {
		return []string{}
	}
	out := []string{}
	for i, a := range q.Answers {
		if i < len(q.Correct) && q.Correct[i] {
			out = append(out, a)
		}
	}
	return out
}

// ByTopic keeps questions of the given topic, ignoring case.
func ByTopic(topic string) view.Predicate {
	return view.Predicate{
		Name: TopicPrefix + strings.ToLower(topic),
		Match: func(r view.Record) bool {
			q, ok := r.(*Question)
			return ok && q != nil && strings.EqualFold(q.Topic, topic)
		},
	}
}

// HasCorrectAnswer keeps questions with at least one answer flagged correct.
func HasCorrectAnswer() view.Predicate {
	return view.Predicate{
		Name: "has-correct-answer",
		Match: func(r view.Record) bool {
			q, ok := r.(*Question)
			return ok && len(q.CorrectAnswers()) > 0
		},
	}
}

// TopicPrefix starts the name of every ByTopic predicate.
const TopicPrefix = "topic:"

// Register adds the named predicates of this package to reg, so persisted
// filters that use them can be restored. Any "topic:<name>" resolves,
// whether or not a question of that topic is loaded.
func Register(reg *view.Registry) error {
	if err := reg.RegisterPredicate(HasCorrectAnswer()); err != nil {
		return err
	}
	return reg.RegisterPredicateFactory(TopicPrefix, func(topic string) (view.Predicate, error) {
		if strings.TrimSpace(topic) == "" {
			return view.Predicate{}, ErrEmptyTopic
		}
		return ByTopic(topic), nil
	})
}

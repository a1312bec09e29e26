package question

import (
	"errors"
	"fmt"
)

var (
	ErrNilQuestion = errors.New("nil question")
	ErrEmptyTopic  = errors.New("empty topic")
)

type AnswerMismatchError struct {
	Answers int
	Flags   int
}

func (err AnswerMismatchError) Error() string {
	return fmt.Sprintf("question has %d answers but %d correctness flags", err.Answers, err.Flags)
}

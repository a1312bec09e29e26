package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/goto/sieve/core/question"
	"github.com/goto/sieve/lib/set"
	"gopkg.in/yaml.v2"
)

type recordsFile struct {
	Questions []*question.Question `yaml:"questions"`
}

// readRecords reads a YAML file holding either a list of questions or a
// mapping with a questions key. Every question is validated.
func readRecords(path string) ([]*question.Question, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var qs []*question.Question
	if err := yaml.Unmarshal(b, &qs); err != nil {
		var file recordsFile
		if ferr := yaml.Unmarshal(b, &file); ferr != nil {
			return nil, fmt.Errorf("invalid yaml %s: %w", path, err)
		}
		qs = file.Questions
	}

	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d (%q): %w", i+1, titleOf(q), err)
		}
	}
	return qs, nil
}

// topicsOf returns the distinct, lower-cased topics of qs in sorted order.
func topicsOf(qs []*question.Question) []string {
	topics := set.NewStringSet()
	for _, q := range qs {
		if q == nil || q.Topic == "" {
			continue
		}
		topics.Add(strings.ToLower(q.Topic))
	}
	return topics.Values()
}

func titleOf(q *question.Question) string {
	if q == nil {
		return ""
	}
	return q.Title
}

package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goto/sieve/core/view"
)

// ChangeMessage is the wire form of a view change event.
type ChangeMessage struct {
	ID        string          `json:"id"`
	Kind      view.EventKind  `json:"kind"`
	Old       json.RawMessage `json:"old"`
	New       json.RawMessage `json:"new"`
	Changes   []string        `json:"changes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChangeMessage converts e into its wire form. Old and New carry the
// serializable criteria state; Changes lists the changed field paths.
func NewChangeMessage(e view.Event) (ChangeMessage, error) {
	msg := ChangeMessage{
		ID:        e.ID().String(),
		Kind:      e.Kind(),
		Timestamp: e.Timestamp().UTC(),
	}

	var oldState, newState any
	switch ev := e.(type) {
	case view.SortingChanged:
		oldState, newState = ev.Old().State(), ev.New().State()
	case view.FilterChanged:
		oldState, newState = ev.Old().State(), ev.New().State()
	default:
		return ChangeMessage{}, fmt.Errorf("unsupported event %T", e)
	}

	var err error
	if msg.Old, err = sonic.Marshal(oldState); err != nil {
		return ChangeMessage{}, err
	}
	if msg.New, err = sonic.Marshal(newState); err != nil {
		return ChangeMessage{}, err
	}

	changelog, err := e.Changelog()
	if err != nil {
		return ChangeMessage{}, fmt.Errorf("changelog of event %s: %w", msg.ID, err)
	}
	for _, c := range changelog {
		msg.Changes = append(msg.Changes, c.Type+" "+strings.Join(c.Path, "."))
	}
	return msg, nil
}

// SortStates decodes Old and New of a sorting_changed message.
func (m ChangeMessage) SortStates() (oldState, newState view.SortState, err error) {
	if m.Kind != view.KindSortingChanged {
		return oldState, newState, fmt.Errorf("message %s is %s, not %s", m.ID, m.Kind, view.KindSortingChanged)
	}
	if err := sonic.Unmarshal(m.Old, &oldState); err != nil {
		return oldState, newState, err
	}
	err = sonic.Unmarshal(m.New, &newState)
	return oldState, newState, err
}

// FilterStates decodes Old and New of a filter_changed message.
func (m ChangeMessage) FilterStates() (oldState, newState view.FilterState, err error) {
	if m.Kind != view.KindFilterChanged {
		return oldState, newState, fmt.Errorf("message %s is %s, not %s", m.ID, m.Kind, view.KindFilterChanged)
	}
	if err := sonic.Unmarshal(m.Old, &oldState); err != nil {
		return oldState, newState, err
	}
	err = sonic.Unmarshal(m.New, &newState)
	return oldState, newState, err
}

package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AnswerKind tags the closed set of lesson answer variants.
type AnswerKind string

const (
	AnswerMultipleChoice AnswerKind = "MULTIPLE_CHOICE"
	AnswerFillInBlank    AnswerKind = "FILL_IN_BLANK"
	AnswerDragAndDrop    AnswerKind = "DRAG_AND_DROP"
)

var ErrInvalidAnswer = errors.New("invalid answer payload")

// Answer is a tagged union over the three lesson answer shapes. Exactly one
// variant field matching Kind must be set; ParseAnswer resolves and checks
// this once at the boundary so downstream code only switches on Kind.
type Answer struct {
	Kind           AnswerKind            `json:"kind"`
	MultipleChoice *MultipleChoiceAnswer `json:"multiple_choice,omitempty"`
	FillInBlank    *FillInBlankAnswer    `json:"fill_in_blank,omitempty"`
	DragAndDrop    *DragAndDropAnswer    `json:"drag_and_drop,omitempty"`
}

// MultipleChoiceAnswer holds the learner's selected options.
type MultipleChoiceAnswer struct {
	SelectedOptionIDs []uint `json:"selected_option_ids"`
}

// FillInBlankAnswer holds one response per blank, in blank order.
type FillInBlankAnswer struct {
	Responses []string `json:"responses"`
}

// DragAndDropAnswer maps draggable item keys to the zone they were placed in.
type DragAndDropAnswer struct {
	Placements map[string]string `json:"placements"`
}

// ParseAnswer decodes and validates a raw answer payload.
func ParseAnswer(raw []byte) (*Answer, error) {
	var a Answer
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks that exactly the variant named by Kind is present.
func (a *Answer) Validate() error {
	set := 0
	if a.MultipleChoice != nil {
		set++
	}
	if a.FillInBlank != nil {
		set++
	}
	if a.DragAndDrop != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one answer variant must be set", ErrInvalidAnswer)
	}

	switch a.Kind {
	case AnswerMultipleChoice:
		if a.MultipleChoice == nil || len(a.MultipleChoice.SelectedOptionIDs) == 0 {
			return fmt.Errorf("%w: multiple choice answer requires selected options", ErrInvalidAnswer)
		}
	case AnswerFillInBlank:
		if a.FillInBlank == nil || len(a.FillInBlank.Responses) == 0 {
			return fmt.Errorf("%w: fill-in-blank answer requires responses", ErrInvalidAnswer)
		}
	case AnswerDragAndDrop:
		if a.DragAndDrop == nil || len(a.DragAndDrop.Placements) == 0 {
			return fmt.Errorf("%w: drag-and-drop answer requires placements", ErrInvalidAnswer)
		}
	default:
		return fmt.Errorf("%w: unknown answer kind %q", ErrInvalidAnswer, a.Kind)
	}
	return nil
}

// Legacy converts a typed answer into the flattened shape older readers
// expect. Pure conversion; nothing is persisted in this shape anymore.
func (a *Answer) Legacy() map[string]interface{} {
	switch a.Kind {
	case AnswerMultipleChoice:
		return map[string]interface{}{
			"type":     "mcq",
			"selected": a.MultipleChoice.SelectedOptionIDs,
		}
	case AnswerFillInBlank:
		return map[string]interface{}{
			"type": "text",
			"text": strings.Join(a.FillInBlank.Responses, "|"),
		}
	case AnswerDragAndDrop:
		return map[string]interface{}{
			"type":  "dragdrop",
			"pairs": a.DragAndDrop.Placements,
		}
	}
	return nil
}

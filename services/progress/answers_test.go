package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswerVariants(t *testing.T) {
	a, err := ParseAnswer([]byte(`{"kind":"MULTIPLE_CHOICE","multiple_choice":{"selected_option_ids":[3,7]}}`))
	require.NoError(t, err)
	assert.Equal(t, AnswerMultipleChoice, a.Kind)
	assert.Equal(t, []uint{3, 7}, a.MultipleChoice.SelectedOptionIDs)

	a, err = ParseAnswer([]byte(`{"kind":"FILL_IN_BLANK","fill_in_blank":{"responses":["goroutine","channel"]}}`))
	require.NoError(t, err)
	assert.Equal(t, AnswerFillInBlank, a.Kind)

	a, err = ParseAnswer([]byte(`{"kind":"DRAG_AND_DROP","drag_and_drop":{"placements":{"item1":"zoneA"}}}`))
	require.NoError(t, err)
	assert.Equal(t, AnswerDragAndDrop, a.Kind)
}

func TestParseAnswerRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{`},
		{"unknown kind", `{"kind":"ESSAY","fill_in_blank":{"responses":["x"]}}`},
		{"no variant", `{"kind":"MULTIPLE_CHOICE"}`},
		{"two variants", `{"kind":"MULTIPLE_CHOICE","multiple_choice":{"selected_option_ids":[1]},"fill_in_blank":{"responses":["x"]}}`},
		{"kind variant mismatch", `{"kind":"MULTIPLE_CHOICE","fill_in_blank":{"responses":["x"]}}`},
		{"empty selections", `{"kind":"MULTIPLE_CHOICE","multiple_choice":{"selected_option_ids":[]}}`},
		{"empty responses", `{"kind":"FILL_IN_BLANK","fill_in_blank":{"responses":[]}}`},
		{"empty placements", `{"kind":"DRAG_AND_DROP","drag_and_drop":{"placements":{}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnswer([]byte(tc.raw))
			assert.ErrorIs(t, err, ErrInvalidAnswer)
		})
	}
}

func TestAnswerLegacyConversion(t *testing.T) {
	mc := mcAnswer(4, 9)
	assert.Equal(t, map[string]interface{}{
		"type":     "mcq",
		"selected": []uint{4, 9},
	}, mc.Legacy())

	fib := &Answer{
		Kind:        AnswerFillInBlank,
		FillInBlank: &FillInBlankAnswer{Responses: []string{"alpha", "beta"}},
	}
	assert.Equal(t, map[string]interface{}{
		"type": "text",
		"text": "alpha|beta",
	}, fib.Legacy())

	dd := &Answer{
		Kind:        AnswerDragAndDrop,
		DragAndDrop: &DragAndDropAnswer{Placements: map[string]string{"a": "1", "b": "2"}},
	}
	assert.Equal(t, map[string]interface{}{
		"type":  "dragdrop",
		"pairs": map[string]string{"a": "1", "b": "2"},
	}, dd.Legacy())
}

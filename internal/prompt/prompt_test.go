package prompt

import (
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugwand/internal/failure"
)

func mockSurvey(t *testing.T, tty bool, answer any) *survey.Prompt {
	t.Helper()
	origAsk, origTTY := askOneFunc, isTerminal
	t.Cleanup(func() { askOneFunc, isTerminal = origAsk, origTTY })

	var seen survey.Prompt
	isTerminal = func() bool { return tty }
	askOneFunc = func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
		seen = p
		switch r := response.(type) {
		case *string:
			*r = answer.(string)
		case *bool:
			*r = answer.(bool)
		}
		return nil
	}
	return &seen
}

func TestChoose_ReturnsEnteredNumber(t *testing.T) {
	seen := mockSurvey(t, true, " 2 ")
	n, err := NewSurveyPrompter().Choose("Pick a process", []string{"PID 1", "PID 7"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	input, ok := (*seen).(*survey.Input)
	require.True(t, ok)
	assert.Contains(t, input.Message, "[1] PID 1")
	assert.Contains(t, input.Message, "[2] PID 7")
}

func TestChoose_NonNumeric(t *testing.T) {
	mockSurvey(t, true, "abc")
	_, err := NewSurveyPrompter().Choose("Pick", []string{"a"})
	var sel *failure.InvalidSelectionError
	require.True(t, errors.As(err, &sel))
	assert.Equal(t, "abc", sel.Input)
}

func TestChoose_NotATerminal(t *testing.T) {
	mockSurvey(t, false, "1")
	_, err := NewSurveyPrompter().Choose("Pick", []string{"a"})
	var sel *failure.InvalidSelectionError
	require.True(t, errors.As(err, &sel))
	assert.Contains(t, sel.Hint(), "--pid")
}

func TestConfirm(t *testing.T) {
	mockSurvey(t, true, true)
	ok, err := NewSurveyPrompter().Confirm("Terminate?", false)
	require.NoError(t, err)
	assert.True(t, ok)

	mockSurvey(t, false, true)
	ok, err = NewSurveyPrompter().Confirm("Terminate?", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChoose_InterruptIsCancellation(t *testing.T) {
	mockSurvey(t, true, "")
	askOneFunc = func(survey.Prompt, interface{}, ...survey.AskOpt) error {
		return terminal.InterruptErr
	}

	_, err := NewSurveyPrompter().Choose("Pick a process", []string{"PID 1", "PID 7"})
	assert.ErrorIs(t, err, ErrCancelled)

	_, err = NewSurveyPrompter().Confirm("Terminate it?", true)
	assert.ErrorIs(t, err, ErrCancelled)
}

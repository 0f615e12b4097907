package prompt

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"

	"debugwand/internal/failure"
)

// Prompter asks the user to make a choice.
type Prompter interface {
	// Choose shows options numbered from 1 and returns the number the user
	// entered. Range checking is left to the caller.
	Choose(title string, options []string) (int, error)
	Confirm(message string, def bool) (bool, error)
}

// Wrapper for survey functions to allow mocking in tests
var (
	askOneFunc = survey.AskOne
	isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// ErrCancelled is returned when the user interrupts a prompt.
var ErrCancelled = errors.New("cancelled by user")

func ask(p survey.Prompt, response interface{}) error {
	err := askOneFunc(p, response)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return err
}

// SurveyPrompter prompts on the controlling terminal.
type SurveyPrompter struct{}

func NewSurveyPrompter() *SurveyPrompter {
	return &SurveyPrompter{}
}

func (p *SurveyPrompter) Choose(title string, options []string) (int, error) {
	if !isTerminal() {
		return 0, &failure.InvalidSelectionError{Reason: "cannot prompt, stdin is not a terminal"}
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "  [%d] %s\n", i+1, opt)
	}
	b.WriteString(fmt.Sprintf("Select 1-%d:", len(options)))

	var answer string
	err := ask(&survey.Input{Message: b.String(), Default: "1"}, &answer)
	if err != nil {
		return 0, err
	}
	answer = strings.TrimSpace(answer)
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, &failure.InvalidSelectionError{Input: answer, Reason: "not a number"}
	}
	return n, nil
}

func (p *SurveyPrompter) Confirm(message string, def bool) (bool, error) {
	if !isTerminal() {
		return def, nil
	}
	answer := def
	if err := ask(&survey.Confirm{Message: message, Default: def}, &answer); err != nil {
		return false, err
	}
	return answer, nil
}

package output

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// IsTTY returns true if both stdin and stdout are terminals
func IsTTY() bool {
	return (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
}

// Confirmer asks the user a yes/no question
type Confirmer func(message string, defaultValue bool) (bool, error)

// SurveyConfirm asks on the terminal with a survey prompt
func SurveyConfirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// AutoConfirm answers every question with yes
func AutoConfirm(_ string, _ bool) (bool, error) {
	return true, nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"stockdesk/internal/console"
)

// PasswordEnvVar supplies the password for non-interactive logins.
const PasswordEnvVar = "STOCKDESK_PASSWORD"

// ErrPromptAborted is returned when the user interrupts a prompt.
var ErrPromptAborted = errors.New("login aborted")

// CredentialPrompt collects login credentials. Values already set are not
// asked for again.
type CredentialPrompt struct {
	In  io.Reader
	Out io.Writer
	// Interactive selects readline prompts with a hidden password. When
	// false, missing values are read line by line from In.
	Interactive bool
}

// NewCredentialPrompt reads from in and prompts on out. Readline is used
// only when in is a terminal.
func NewCredentialPrompt(in io.Reader, out io.Writer) *CredentialPrompt {
	f, ok := in.(*os.File)
	return &CredentialPrompt{
		In:          in,
		Out:         out,
		Interactive: ok && isTerminal(f),
	}
}

// Complete fills in whatever is missing from creds. The password falls back
// to $STOCKDESK_PASSWORD before prompting.
func (p *CredentialPrompt) Complete(creds console.Credentials) (console.Credentials, error) {
	if creds.Secret == "" {
		creds.Secret = os.Getenv(PasswordEnvVar)
	}
	if creds.Identifier != "" && creds.Secret != "" {
		return creds, nil
	}
	if p.Interactive {
		return p.completeInteractive(creds)
	}
	return p.completeLines(creds)
}

func (p *CredentialPrompt) completeInteractive(creds console.Credentials) (console.Credentials, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Username: ",
		Stdout:          p.Out,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return creds, fmt.Errorf("failed to open terminal: %w", err)
	}
	defer rl.Close()

	if creds.Identifier == "" {
		line, err := rl.Readline()
		if err != nil {
			return creds, promptError(err)
		}
		creds.Identifier = strings.TrimSpace(line)
	}
	if creds.Secret == "" {
		secret, err := rl.ReadPassword("Password: ")
		if err != nil {
			return creds, promptError(err)
		}
		creds.Secret = string(secret)
	}
	return creds, nil
}

func (p *CredentialPrompt) completeLines(creds console.Credentials) (console.Credentials, error) {
	scanner := bufio.NewScanner(p.In)
	next := func(label string) (string, error) {
		if p.Out != nil {
			fmt.Fprintf(p.Out, "%s: ", label)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", ErrPromptAborted
		}
		return strings.TrimRight(scanner.Text(), "\r\n"), nil
	}

	var err error
	if creds.Identifier == "" {
		if creds.Identifier, err = next("Username"); err != nil {
			return creds, err
		}
		creds.Identifier = strings.TrimSpace(creds.Identifier)
	}
	if creds.Secret == "" {
		if creds.Secret, err = next("Password"); err != nil {
			return creds, err
		}
	}
	return creds, nil
}

func promptError(err error) error {
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return ErrPromptAborted
	}
	return err
}

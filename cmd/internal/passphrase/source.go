package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting the operator. The value is cached after the first successful
// retrieval so repeated calls reuse the same secret.
type Source struct {
	envVar  string
	confirm bool

	// prompt reads a line without echo; tests replace it.
	prompt func(label string) (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// interactively prompting on the terminal.
func NewSource(envVar string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), prompt: terminalPrompt(os.Stdin, os.Stderr)}
}

// WithConfirmation makes interactive prompts ask twice, for use when a new
// keystore is being written.
func (s *Source) WithConfirmation() *Source {
	s.confirm = true
	return s
}

// Get returns the cached passphrase or resolves it if this is the first call.
// When the environment variable is set the exact value is used; otherwise the
// operator is prompted on stderr. Whitespace-only passphrases are rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}
		if s.prompt == nil {
			s.err = errors.New("keystore passphrase required and no prompt available")
			return
		}

		passphrase, err := s.prompt("Enter keystore passphrase: ")
		if err != nil {
			s.err = s.describe(err)
			return
		}
		if strings.TrimSpace(passphrase) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		if s.confirm {
			again, err := s.prompt("Repeat keystore passphrase: ")
			if err != nil {
				s.err = s.describe(err)
				return
			}
			if again != passphrase {
				s.err = errors.New("keystore passphrases do not match")
				return
			}
		}
		s.value = passphrase
	})

	return s.value, s.err
}

var errNoTerminal = errors.New("no terminal available")

func (s *Source) describe(err error) error {
	if errors.Is(err, errNoTerminal) {
		if s.envVar != "" {
			return fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
		}
		return errors.New("keystore passphrase required and no terminal available")
	}
	return fmt.Errorf("failed to read passphrase: %w", err)
}

func terminalPrompt(in *os.File, out io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", errNoTerminal
		}
		fmt.Fprint(out, label)
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}
}

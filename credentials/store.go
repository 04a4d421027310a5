// Package credentials stores API keys and tokens in the system keyring,
// with environment variables taking precedence so containerized
// deployments work without a keyring daemon.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	vmerrors "github.com/verimeet/verimeet/pkg/errors"
)

// ServiceName identifies this application in the system keyring.
const ServiceName = "verimeet"

// Known credential names.
const (
	KeyOpenAI         = "openai_api_key"
	KeyMeetstream     = "meetstream_api_key"
	KeySerper         = "serper_api_key"
	KeyTavily         = "tavily_api_key"
	KeyGoogleSearch   = "google_search_api_key"
	KeyNotion         = "notion_api_key"
	KeyGoogleCalendar = "google_calendar_token"
	KeyGmail          = "gmail_token"
)

// KnownKeys lists every credential name the keys command accepts.
var KnownKeys = []string{
	KeyOpenAI,
	KeyMeetstream,
	KeySerper,
	KeyTavily,
	KeyGoogleSearch,
	KeyNotion,
	KeyGoogleCalendar,
	KeyGmail,
}

// IsKnownKey reports whether name is a recognized credential name.
func IsKnownKey(name string) bool {
	for _, k := range KnownKeys {
		if k == name {
			return true
		}
	}
	return false
}

// EnvVar returns the environment variable that overrides a stored
// credential, e.g. openai_api_key becomes VERIMEET_OPENAI_API_KEY.
func EnvVar(name string) string {
	return "VERIMEET_" + strings.ToUpper(name)
}

// Store reads and writes credentials.
type Store struct{}

// NewStore returns a credential store backed by the system keyring.
func NewStore() *Store {
	return &Store{}
}

// Set stores a credential in the keyring.
func (s *Store) Set(name, value string) error {
	if !IsKnownKey(name) {
		return fmt.Errorf("%w: unknown credential %q", vmerrors.ErrValidation, name)
	}
	if value == "" {
		return fmt.Errorf("%w: empty credential value", vmerrors.ErrValidation)
	}
	if err := keyring.Set(ServiceName, name, value); err != nil {
		return fmt.Errorf("storing credential %s: %w", name, err)
	}
	return nil
}

// Get retrieves a credential. The environment variable override is
// checked first, then the keyring. Returns ErrNotFound when neither is
// set.
func (s *Store) Get(name string) (string, error) {
	if v := os.Getenv(EnvVar(name)); v != "" {
		return v, nil
	}
	value, err := keyring.Get(ServiceName, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: credential %s", vmerrors.ErrNotFound, name)
		}
		return "", fmt.Errorf("reading credential %s: %w", name, err)
	}
	return value, nil
}

// Delete removes a credential from the keyring.
func (s *Store) Delete(name string) error {
	if err := keyring.Delete(ServiceName, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: credential %s", vmerrors.ErrNotFound, name)
		}
		return fmt.Errorf("deleting credential %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a credential is available from the environment
// or the keyring.
func (s *Store) Exists(name string) bool {
	_, err := s.Get(name)
	return err == nil
}

// Available reports whether the system keyring can be used at all.
func Available() bool {
	probe := "availability_probe"
	if err := keyring.Set(ServiceName, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, probe)
	return true
}

// Mask obscures a credential for display, keeping a short prefix and
// suffix.
func Mask(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

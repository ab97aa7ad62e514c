package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports that a completion client could not be built,
// for example because no API key is configured.
type ConfigurationError struct {
	Err error
}

func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{Err: err}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

type Category string

const (
	CategoryAuthentication    Category = "authentication"
	CategoryRateLimit         Category = "rate-limit"
	CategoryNetwork           Category = "network"
	CategoryMalformedResponse Category = "malformed-response"
	// CategoryService covers any other rejection by the remote service.
	CategoryService  Category = "service"
	CategoryCanceled Category = "canceled"
)

var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrRateLimit         = errors.New("rate limited")
	ErrNetwork           = errors.New("network failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrService           = errors.New("remote service error")
	ErrCanceled          = errors.New("remote call canceled")
)

var categorySentinels = map[Category]error{
	CategoryAuthentication:    ErrAuthentication,
	CategoryRateLimit:         ErrRateLimit,
	CategoryNetwork:           ErrNetwork,
	CategoryMalformedResponse: ErrMalformedResponse,
	CategoryService:           ErrService,
	CategoryCanceled:          ErrCanceled,
}

// RemoteCallError wraps a failure of the completion service. The original
// provider error stays reachable through Unwrap.
type RemoteCallError struct {
	Category Category
	Provider string
	Err      error
}

func NewRemoteCallError(category Category, provider string, err error) *RemoteCallError {
	return &RemoteCallError{Category: category, Provider: provider, Err: err}
}

func (e *RemoteCallError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("remote call failed (%s): %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s remote call failed (%s): %v", e.Provider, e.Category, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the error's category.
func (e *RemoteCallError) Is(target error) bool {
	sentinel, ok := categorySentinels[e.Category]
	return ok && target == sentinel
}

// CategoryOf returns the category of the first RemoteCallError in err's chain.
func CategoryOf(err error) (Category, bool) {
	var rce *RemoteCallError
	if errors.As(err, &rce) {
		return rce.Category, true
	}
	return "", false
}

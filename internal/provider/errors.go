package provider

import "fmt"

// ExternalProviderError reports a failed or unusable response from the
// results feed.
type ExternalProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ExternalProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ExternalProviderError) Unwrap() error { return e.Err }

// Package sanitize strips markup from user-supplied profile text. Display
// names and bios are plain text in Lorekeep; anything that looks like HTML
// is hostile, so the policy removes all elements rather than allowing a
// safe subset.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for profile text.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from user-supplied text and trims surrounding
// whitespace. MUST be called on display names and bios before storing them.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(input))
}

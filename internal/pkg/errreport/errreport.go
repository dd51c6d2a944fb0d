package errreport

import (
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
)

var enabled atomic.Bool

// Configure turns reporting on when a token is present
func Configure(token, environment, codeVersion string) {
	if token == "" {
		enabled.Store(false)
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	if codeVersion != "" {
		rollbar.SetCodeVersion(codeVersion)
	}
	rollbar.SetEnabled(true)
	enabled.Store(true)
}

// Enabled reports whether errors are being forwarded
func Enabled() bool { return enabled.Load() }

// Report forwards an unexpected error with request context
func Report(err error, extras map[string]interface{}) {
	if err == nil || !enabled.Load() {
		return
	}
	rollbar.Error(err, extras)
}

// Flush waits for queued reports; call on shutdown.
func Flush() {
	if enabled.Load() {
		rollbar.Wait()
	}
}

package input

import (
	"github.com/offlinefirst/inputpulse/pkg/permissions"
)

// Environment summarises input capture backend support on this host.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

const (
	// ProviderHook is the OS-level keyboard/mouse hook backend.
	ProviderHook = "os_hook"
	// ProviderPoller is the pointer-position polling fallback.
	ProviderPoller = "pointer_poller"
)

// DetectEnvironment reports which input backend the host can support. The
// hook is preferred; when input monitoring is denied the poller is offered
// instead, since sampling the pointer position needs no special trust.
func DetectEnvironment() Environment {
	probe := permissions.ProbeInputMonitoring(nil)
	env := Environment{
		Provider:   ProviderHook,
		Available:  true,
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
	}

	if probe.Status == permissions.StatusDenied || probe.Status == permissions.StatusUnavailable {
		env.Provider = ProviderPoller
		if env.Message == "" {
			env.Message = "input hook unavailable, falling back to pointer polling"
		}
	}
	return env
}

// Package permissions reports the coarse host permission state governing
// OS-level input capture.
package permissions

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates access has been explicitly denied.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// StatusString returns the string representation for diagnostics output.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

// ProbeInputMonitoring inspects the host for permission to observe global
// keyboard and mouse events. INPUTPULSE_INPUT_MONITORING overrides
// detection (granted, denied, prompt, unavailable).
func ProbeInputMonitoring(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("INPUTPULSE_INPUT_MONITORING"); ok {
		return interpretPermissionFlag("input monitoring", value)
	}

	switch runtime.GOOS {
	case "darwin":
		return ProbeResult{
			Status:   StatusPromptRequired,
			Message:  "macOS will prompt for input monitoring approval",
			Guidance: "grant access under System Settings > Privacy & Security > Input Monitoring",
		}
	case "linux":
		if devInputReadable() {
			return ProbeResult{Status: StatusGranted, Message: "raw input devices are readable"}
		}
		return ProbeResult{
			Status:   StatusDenied,
			Message:  "no read access to /dev/input devices",
			Guidance: "add your user to the input group: sudo usermod -a -G input $USER, then log out and back in",
		}
	case "windows":
		return ProbeResult{Status: StatusGranted, Message: "low-level hooks require no explicit permission"}
	default:
		return ProbeResult{Status: StatusUnavailable, Message: "input monitoring unsupported on this platform"}
	}
}

func devInputReadable() bool {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		file, err := os.Open(filepath.Join("/dev/input", entry.Name()))
		if err != nil {
			return false
		}
		file.Close()
		return true
	}
	return false
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "update INPUTPULSE_INPUT_MONITORING to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

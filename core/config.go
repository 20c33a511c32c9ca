package core

import "strings"

// HostKind selects the close negotiation strategy.
type HostKind string

const (
	HostWeb    HostKind = "web"
	HostNative HostKind = "native"
)

// ConfirmExit is the application.confirmExit preference.
type ConfirmExit string

const (
	ConfirmExitNever      ConfirmExit = "never"
	ConfirmExitAlways     ConfirmExit = "always"
	ConfirmExitIfRequired ConfirmExit = "ifRequired"
)

const defaultWSPath = "ws://127.0.0.1:8000"

// ExtensionCandidate is an extension path to load at startup.
type ExtensionCandidate struct {
	Path          string
	IsDevelopment bool
}

// AppConfig is built once during bootstrap and never rebound afterwards.
type AppConfig struct {
	ApplicationName string
	URIScheme       string
	Version         string

	WorkspaceDir        string
	ExtensionDir        string
	ExtensionCandidates []ExtensionCandidate
	// ExtensionDevelopmentPaths are turned into development candidates.
	ExtensionDevelopmentPaths []string
	ExtensionDevelopmentHost  bool

	WSPath                      string
	ConnectionPath              string
	ConnectionProtocols         []string
	UseExperimentalMultiChannel bool
	ClientID                    string

	Host     HostKind
	WindowID string
}

// normalize fills derived fields; the receiver is a copy.
func (c AppConfig) normalize() AppConfig {
	if c.ApplicationName == "" {
		c.ApplicationName = "WORKBENCH"
	}
	if c.URIScheme == "" {
		c.URIScheme = "WB_" + strings.ToUpper(c.ApplicationName)
	}
	if c.WSPath == "" {
		c.WSPath = defaultWSPath
	}
	if c.ConnectionPath == "" {
		c.ConnectionPath = strings.TrimRight(c.WSPath, "/") + "/service"
	}
	if c.Host == "" {
		c.Host = HostWeb
	}

	candidates := append([]ExtensionCandidate(nil), c.ExtensionCandidates...)
	for _, p := range c.ExtensionDevelopmentPaths {
		candidates = append(candidates, ExtensionCandidate{Path: p, IsDevelopment: true})
	}
	c.ExtensionCandidates = candidates
	if len(c.ExtensionDevelopmentPaths) > 0 {
		c.ExtensionDevelopmentHost = true
	}
	c.ConnectionProtocols = append([]string(nil), c.ConnectionProtocols...)
	c.ExtensionDevelopmentPaths = append([]string(nil), c.ExtensionDevelopmentPaths...)
	return c
}

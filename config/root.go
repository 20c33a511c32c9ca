package config

import "time"

type AppInfo struct {
	Name      string `config:"name" validate:"required"`
	Version   string `config:"version" validate:"required"`
	URIScheme string `config:"uriScheme"`
}

// ConnectionConfig describes how the client reaches its remote peer.
type ConnectionConfig struct {
	// Kind is one of direct, native or web.
	Kind           string        `config:"kind" validate:"omitempty,oneof=direct native web"`
	WSPath         string        `config:"wsPath" validate:"omitempty,wsurl"`
	Path           string        `config:"path"`
	Protocols      []string      `config:"protocols"`
	Multiplex      bool          `config:"multiplex"`
	ClientID       string        `config:"clientId"`
	ConnectTimeout time.Duration `config:"connectTimeout"`
	NativeSocket   string        `config:"nativeSocket"`
}

type HostConfig struct {
	Kind     string `config:"kind" validate:"omitempty,oneof=web native"`
	WindowID string `config:"windowId"`
}

type WorkspaceConfig struct {
	Dir                  string   `config:"dir"`
	ExtensionDir         string   `config:"extensionDir"`
	ExtensionCandidates  []string `config:"extensionCandidates"`
	ExtensionDevelopment []string `config:"extensionDevelopment"`
}

type PreferencesConfig struct {
	ConfirmExit string `config:"confirmExit" validate:"omitempty,oneof=never always ifRequired"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
}

type LoggingConfig struct {
	Level  string `config:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `config:"format" validate:"omitempty,oneof=text json"`
}

type RedisConfig struct {
	Addr   string `config:"addr"`
	DB     int    `config:"db" validate:"min=0"`
	Prefix string `config:"prefix"`
}

// AppDataConfig selects where application data is loaded from.
// Without a redis address the inline Values are used.
type AppDataConfig struct {
	Redis  RedisConfig       `config:"redis"`
	Values map[string]string `config:"values"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Connection    ConnectionConfig    `config:"connection"`
	Host          HostConfig          `config:"host"`
	Workspace     WorkspaceConfig     `config:"workspace"`
	Preferences   PreferencesConfig   `config:"preferences"`
	Server        ServerConfig        `config:"server"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
	Logging       LoggingConfig       `config:"logging"`
	AppData       AppDataConfig       `config:"appdata"`
}

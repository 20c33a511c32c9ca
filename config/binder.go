package config

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Binder decodes merged source maps into a typed struct and validates it.
//
// Binding happens in two stages, and a failure in either is reported as a
// *BindError naming the stage:
//  1. decode: mapstructure turns the untyped maps into the target struct
//  2. validate: validator checks the decoded fields against their rules
//
// Fields are mapped with `config` tags and checked with `validate` tags. Key
// matching is case-insensitive, so lowercased env and flag keys still reach
// camelCase fields.
//
// Example struct:
//
//	type ConnectionConfig struct {
//	    Kind           string        `config:"kind" validate:"omitempty,oneof=direct native web"`
//	    WSPath         string        `config:"wsPath" validate:"omitempty,wsurl"`
//	    ConnectTimeout time.Duration `config:"connectTimeout"`
//	}
type Binder struct {
	validator *validator.Validate
}

// BindError reports which stage failed: "decode" or "validate".
type BindError struct {
	Stage string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// NewBinder converts "5s" into durations and "a,b" into slices and decodes
// weakly typed input, since env and CLI values always arrive as strings.
// The "wsurl" rule accepts ws, wss, http and https addresses with a host.
func NewBinder() *Binder {
	v := validator.New()
	if err := v.RegisterValidation("wsurl", validateWSURL); err != nil {
		panic(err)
	}
	return &Binder{
		validator: v,
	}
}

func validateWSURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return true
	}
	return false
}

// Bind decodes source into target, a pointer to a struct, and validates it.
// target may be partially populated when validation fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	if err := b.decode(source, target); err != nil {
		return &BindError{
			Stage: "decode",
			Err:   err,
		}
	}

	if err := b.validate(target); err != nil {
		return &BindError{
			Stage: "validate",
			Err:   err,
		}
	}

	return nil
}

func (b *Binder) decode(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		TagName: "config",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(source)
}

func (b *Binder) validate(target any) error {
	return b.validator.Struct(target)
}

package config

import (
	"reflect"
	"strings"
)

// diffEvent lists the top-level fields that differ between old and new, named
// by their `config` tag when they have one so keys match the source maps.
func diffEvent(old, new any) Event {
	evt := Event{OldConfig: old, NewConfig: new}
	if old == nil || new == nil {
		return evt
	}

	oldVal := reflect.Indirect(reflect.ValueOf(old))
	newVal := reflect.Indirect(reflect.ValueOf(new))
	if oldVal.Kind() != reflect.Struct || newVal.Kind() != reflect.Struct || oldVal.Type() != newVal.Type() {
		return evt
	}

	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if reflect.DeepEqual(oldVal.Field(i).Interface(), newVal.Field(i).Interface()) {
			continue
		}
		evt.ChangedKeys = append(evt.ChangedKeys, keyName(f))
	}
	return evt
}

func keyName(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("config"), ",")
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}

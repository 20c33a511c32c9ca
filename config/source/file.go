package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/workbench/config"
)

// FileSource loads application.yaml (or .yml) from BasePath and deep-merges
// application.<Profile>.yaml over it when Profile is set and the file exists.
//
//	configs/
//	  application.yaml
//	  application.native.yaml
type FileSource struct {
	BasePath string
	Profile  string
	// Optional makes a missing base file load as empty instead of failing.
	Optional bool
}

func (f *FileSource) Name() string { return "file" }

// Load returns an error wrapping fs.ErrNotExist when the base file is missing
// and the source is not optional.
func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	data := map[string]any{}

	baseFile := findYAMLFile(f.BasePath, "application")
	if baseFile == "" {
		if f.Optional {
			return data, nil
		}
		return nil, fmt.Errorf("no application.yaml in %q: %w", f.BasePath, fs.ErrNotExist)
	}
	if err := readYAML(baseFile, data); err != nil {
		return nil, err
	}

	if f.Profile != "" {
		if profileFile := findYAMLFile(f.BasePath, "application."+f.Profile); profileFile != "" {
			overlay := map[string]any{}
			if err := readYAML(profileFile, overlay); err != nil {
				return nil, err
			}
			config.Merge(data, overlay)
		}
	}

	return data, nil
}

func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readYAML(path string, out map[string]any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Watch signals ch whenever an application*.yaml or .yml file in BasePath is
// written, created, renamed or removed. It returns once the watcher is set up.
func (f *FileSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(f.BasePath); err != nil {
		w.Close()
		return fmt.Errorf("watch %q: %w", f.BasePath, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !isConfigFile(ev.Name) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				select {
				case ch <- config.Event{ChangedKeys: []string{filepath.Base(ev.Name)}}:
				default:
				}
			case _, ok := <-w.Errors:
				// watcher errors are not fatal
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func isConfigFile(path string) bool {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return strings.HasPrefix(name, "application") && (ext == ".yaml" || ext == ".yml")
}

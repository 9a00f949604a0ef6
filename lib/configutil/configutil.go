package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns cnavi.json5 into cnavi.local.json5.
func localName(path string) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(path, ext), ext)
}

// readFile decodes path into out, it reports false when the file is absent
// or empty.
func readFile[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file. `name` should come with a
// file extension, the local override is found by inserting `.local` in front
// of it. Later files take priority:
//  1. <name>.<ext>
//  2. <name>.local.<ext>
//
// os.ErrNotExist is returned when neither exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readFile(name, &out)
	if err != nil {
		return out, err
	}

	local := localName(name)
	var override T
	foundLocal, err := readFile(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Debug("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig, but it goes up the filesystem from the
// working directory until the root to find a configuration file matching
// the name. fallbackDirs are searched afterwards, in order.
func ReadRecursively[T any](name string, fallbackDirs ...string) (T, error) {
	var defaultOut T

	root, err := filepath.Abs("/")
	if err != nil {
		return defaultOut, err
	}
	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	dirs := []string{}
	for current != root {
		dirs = append(dirs, current)
		current = filepath.Dir(current)
	}
	dirs = append(dirs, fallbackDirs...)

	for _, dir := range dirs {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return defaultOut, err
		}
		return config, nil
	}

	return defaultOut, os.ErrNotExist
}

// Layer merges the configuration found by ReadRecursively over defaults,
// fields the files leave empty keep their default. A zero value in a file
// does not replace a default, fields where zero is meaningful must be
// pointers left nil in defaults. No file at all is not an error.
func Layer[T any](defaults T, name string, fallbackDirs ...string) (T, error) {
	found, err := ReadRecursively[T](name, fallbackDirs...)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}
	err = mergo.Merge(&defaults, found, mergo.WithOverride)
	if err != nil {
		return defaults, err
	}
	return defaults, nil
}

// Package config reads Klipper-style configuration files:
//
//	[section]
//	key: value        # comment
//	[include other.cfg]
//
// Every option read through a Section is recorded, so callers can reject
// options nobody consumed.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gcode-extrude/pkg/errors"
)

// Config is a parsed configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section

	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file. [include pattern] sections are resolved
// relative to the including file; recursive includes are an error.
func Load(path string) (*Config, error) {
	c := New()
	if err := c.parseFile(path, make(map[string]bool)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.IOError("resolve config path", err).SetFile(path)
	}
	if visited[abs] {
		return errors.New(errors.ErrConfigValidation, "recursive include").SetFile(path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return errors.IOError("open config", err).SetFile(path)
	}
	defer f.Close()

	include := func(pattern string) error {
		glob := filepath.Join(filepath.Dir(abs), pattern)
		matches, err := filepath.Glob(glob)
		if err != nil {
			return errors.Wrap(err, errors.ErrConfigValidation, "invalid include pattern "+pattern).SetFile(path)
		}
		if len(matches) == 0 && !strings.ContainsAny(glob, "*?[") {
			return errors.New(errors.ErrConfigValidation, "include file does not exist: "+glob).SetFile(path)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if err := c.parseFile(m, visited); err != nil {
				return err
			}
		}
		return nil
	}
	return c.parse(f, path, include)
}

// parse reads sections from r. include is nil when includes are not
// supported for this source.
func (c *Config) parse(r io.Reader, name string, include func(pattern string) error) error {
	var (
		current string
		options map[string]string
	)
	lineNum := 0
	fail := func(msg string) error {
		return errors.WithLineNumber(errors.New(errors.ErrConfigValidation, msg), lineNum).SetFile(name)
	}
	flush := func() {
		if current != "" {
			c.addSection(current, options)
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			current, options = "", nil

			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return fail("empty section header")
			}
			if pattern, ok := strings.CutPrefix(header, "include "); ok {
				if include == nil {
					return fail("include not supported")
				}
				pattern = strings.TrimSpace(pattern)
				if pattern == "" {
					return fail("empty include")
				}
				if err := include(pattern); err != nil {
					return err
				}
				continue
			}
			current = header
			options = make(map[string]string)
			continue
		}

		if current == "" {
			return fail("option outside of a section")
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			key, value, ok = strings.Cut(line, "=")
		}
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fail("expected 'key: value'")
		}
		options[key] = strings.TrimSpace(value)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return errors.IOError("read config", err).SetFile(name)
	}
	return nil
}

// addSection adds a section, merging options into an existing one.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}
	c.sections[name] = newSection(name, options)
}

// GetSection returns a Section by name, or an error if not found.
func (c *Config) GetSection(name string) (*Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if !ok {
		return nil, ErrMissingSection(name)
	}
	c.accessedSections[name] = struct{}{}
	return sec, nil
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// CheckUnusedOptions returns an error if a section that was read has
// options nobody consumed. Sections never fetched are not checked.
func (c *Config) CheckUnusedOptions() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var problems []string
	for name := range c.accessedSections {
		if unused := c.sections[name].GetUnusedOptions(); len(unused) > 0 {
			problems = append(problems, fmt.Sprintf("[%s]: unknown options %v", name, unused))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return NewConfigError("", "", strings.Join(problems, "; "))
	}
	return nil
}

// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package schema provides the schema context attached to NETCONF sessions.
//
// A context records the YANG modules a server announced in its hello
// capabilities. It can be shared between sessions; sessions only close
// contexts they created themselves.
package schema

import (
	"errors"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
)

// SearchDirEnv names the environment variable read by [NewDefault].
const SearchDirEnv = "NETCONF_SCHEMA_DIR"

// ErrClosed is returned when a closed context is modified.
var ErrClosed = errors.New("schema: context is closed")

// Module is one YANG module announced by a server.
type Module struct {
	Name      string
	Revision  string
	Namespace string
	Features  []string
}

// Context is a registry of YANG modules. It is safe for concurrent use.
type Context struct {
	searchDir string

	mu      sync.RWMutex
	modules map[string]Module
	closed  bool
}

// New returns an empty context that looks for module files in searchDir.
func New(searchDir string) *Context {
	return &Context{searchDir: searchDir, modules: make(map[string]Module)}
}

// NewDefault returns an empty context using the search directory named by
// the NETCONF_SCHEMA_DIR environment variable. A set but missing directory is an error.
func NewDefault() (*Context, error) {
	dir := os.Getenv(SearchDirEnv)
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, &os.PathError{Op: "open", Path: dir, Err: errors.New("not a directory")}
		}
	}
	return New(dir), nil
}

// SearchDir returns the module search directory.
func (c *Context) SearchDir() string { return c.searchDir }

// Add records m, replacing a module with the same name.
func (c *Context) Add(m Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.modules[m.Name] = m
	return nil
}

// Module returns the module called name.
func (c *Context) Module(name string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.modules[name]
	return m, ok
}

// Modules returns every module sorted by name.
func (c *Context) Modules() []Module {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Fill records the modules announced in capabilities and returns how many
// were found. Capabilities without a module parameter are ignored.
func (c *Context) Fill(capabilities []string) (int, error) {
	n := 0
	for _, capability := range capabilities {
		m, ok := ParseCapability(capability)
		if !ok {
			continue
		}
		if err := c.Add(m); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Close releases the context. Further modifications fail with [ErrClosed].
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.modules = make(map[string]Module)
	return nil
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ParseCapability extracts the module announced by a capability URI such as
//
//	urn:ietf:params:xml:ns:yang:ietf-interfaces?module=ietf-interfaces&revision=2018-02-20&features=arbitrary-names
func ParseCapability(capability string) (Module, bool) {
	ns, query, found := strings.Cut(capability, "?")
	if !found {
		return Module{}, false
	}

	// Servers send "&amp;" unescaped by some XML writers.
	values, err := url.ParseQuery(strings.ReplaceAll(query, "&amp;", "&"))
	if err != nil {
		return Module{}, false
	}

	name := values.Get("module")
	if name == "" {
		return Module{}, false
	}

	m := Module{Name: name, Revision: values.Get("revision"), Namespace: ns}
	if features := values.Get("features"); features != "" {
		m.Features = strings.Split(features, ",")
	}
	return m, true
}

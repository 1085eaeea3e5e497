// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"fmt"
	"sync"
)

// Result is one node of a validation tree.
type Result struct {
	Name     string    `json:"name"`
	Infos    []string  `json:"info,omitempty"`
	Warnings []string  `json:"warning,omitempty"`
	Errors   []string  `json:"error,omitempty"`
	Children []*Result `json:"children,omitempty"`
}

// IsValid reports whether neither this node nor any descendant holds
// an error.
func (r *Result) IsValid() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, child := range r.Children {
		if !child.IsValid() {
			return false
		}
	}
	return true
}

// Child returns the direct child with the given name.
func (r *Result) Child(name string) (*Result, bool) {
	for _, child := range r.Children {
		if child.Name == name {
			return child, true
		}
	}
	return nil, false
}

// Counts returns the number of info, warning and error messages in the
// whole subtree.
func (r *Result) Counts() (infos, warnings, errors int) {
	infos, warnings, errors = len(r.Infos), len(r.Warnings), len(r.Errors)
	for _, child := range r.Children {
		i, w, e := child.Counts()
		infos += i
		warnings += w
		errors += e
	}
	return infos, warnings, errors
}

// Collector appends messages to a Result node. It is safe for
// concurrent use; children share their parent's lock.
type Collector struct {
	mu     *sync.Mutex
	result *Result
}

// NewCollector returns a collector writing into a fresh root named name.
func NewCollector(name string) *Collector {
	return &Collector{mu: &sync.Mutex{}, result: &Result{Name: name}}
}

// Info appends an informational message.
func (c *Collector) Info(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Infos = append(c.result.Infos, fmt.Sprintf(format, args...))
}

// Warning appends a warning. Warnings never make a result invalid.
func (c *Collector) Warning(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Warnings = append(c.result.Warnings, fmt.Sprintf(format, args...))
}

// Error appends an error.
func (c *Collector) Error(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Errors = append(c.result.Errors, fmt.Sprintf(format, args...))
}

// Child returns a collector for the named child node, creating it on
// first use.
func (c *Collector) Child(name string) *Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	if child, ok := c.result.Child(name); ok {
		return &Collector{mu: c.mu, result: child}
	}
	child := &Result{Name: name}
	c.result.Children = append(c.result.Children, child)
	return &Collector{mu: c.mu, result: child}
}

// Result returns the node this collector writes into.
func (c *Collector) Result() *Result {
	return c.result
}

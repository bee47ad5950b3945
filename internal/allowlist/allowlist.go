// Package allowlist holds values that are never reported as PII, such as the
// platform's own support address.
package allowlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Allowlist is a case-insensitive set of exempt values, optionally backed by
// a file with one value per line. Lines starting with # are ignored.
type Allowlist struct {
	mu    sync.RWMutex
	items map[string]struct{}
	path  string
}

// New returns an empty in-memory allowlist seeded with values.
func New(values ...string) *Allowlist {
	a := &Allowlist{items: make(map[string]struct{})}
	for _, v := range values {
		if key := normalize(v); key != "" {
			a.items[key] = struct{}{}
		}
	}
	return a
}

// Load reads the allowlist at path. A missing file yields an empty list that
// will be created on the first Add.
func Load(path string) (*Allowlist, error) {
	a := New()
	a.path = path
	if path == "" {
		return a, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a, nil
		}
		return nil, fmt.Errorf("open allowlist: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a.items[normalize(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read allowlist: %w", err)
	}
	return a, nil
}

// Contains checks if the value is exempt.
func (a *Allowlist) Contains(value string) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.items[normalize(value)]
	return ok
}

// ErrNilAllowlist is returned by Add on a nil *Allowlist.
var ErrNilAllowlist = errors.New("allowlist: not configured")

// Add exempts value and appends it to the backing file, if any.
func (a *Allowlist) Add(value string) error {
	if a == nil {
		return ErrNilAllowlist
	}
	key := normalize(value)
	if key == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.items[key]; ok {
		return nil
	}
	if a.path != "" {
		f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open allowlist: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(strings.TrimSpace(value) + "\n"); err != nil {
			return fmt.Errorf("append allowlist: %w", err)
		}
	}
	a.items[key] = struct{}{}
	return nil
}

// Len returns the number of exempt values.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Values returns the normalized entries in sorted order.
func (a *Allowlist) Values() []string {
	if a == nil {
		return []string{}
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.items))
	for k := range a.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

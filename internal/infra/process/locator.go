// Package process locates TcAutomation.exe and runs it as a child process.
package process

import (
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	errs "twincat-mcp/internal/shared/errors"
)

// ExecutableName is the file name of the automation executable.
const ExecutableName = "TcAutomation.exe"

const resolvedKey = "resolved"

// Resolver supplies the path of the executable to run.
type Resolver interface {
	Resolve() (string, error)
}

// Locator returns the first candidate path that exists as a regular file.
// Successful lookups are cached for the configured TTL; failures never are,
// so a freshly built executable is picked up on the next call.
type Locator struct {
	candidates []string
	cache      *expirable.LRU[string, string]
}

// NewLocator builds a locator over an ordered candidate list. A ttl of zero
// or less disables caching.
func NewLocator(candidates []string, ttl time.Duration) *Locator {
	l := &Locator{candidates: append([]string(nil), candidates...)}
	if ttl > 0 {
		l.cache = expirable.NewLRU[string, string](1, nil, ttl)
	}
	return l
}

// Candidates returns a copy of the probed paths in order.
func (l *Locator) Candidates() []string {
	return append([]string(nil), l.candidates...)
}

// Resolve implements Resolver.
func (l *Locator) Resolve() (string, error) {
	if l.cache != nil {
		if path, ok := l.cache.Get(resolvedKey); ok {
			if isRegularFile(path) {
				return path, nil
			}
			l.cache.Remove(resolvedKey)
		}
	}

	for _, path := range l.candidates {
		if isRegularFile(path) {
			if l.cache != nil {
				l.cache.Add(resolvedKey, path)
			}
			return path, nil
		}
	}
	return "", &errs.NotFoundError{Executable: ExecutableName, Searched: l.Candidates()}
}

// Purge drops any cached resolution.
func (l *Locator) Purge() {
	if l.cache != nil {
		l.cache.Purge()
	}
}

func isRegularFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

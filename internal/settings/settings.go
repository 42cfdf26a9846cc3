// Package settings applies ad hoc key=value overrides, such as the console's
// "set" command or repeated --set flags, to live components.
package settings

import (
	"sort"
	"strings"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

type Matcher func(string) bool
type ApplyFunc func(key, val string) error

type Handler struct {
	Match Matcher
	Apply ApplyFunc
}

type Applier struct {
	handlers []Handler
}

func New(handlers ...Handler) Applier {
	return Applier{handlers: handlers}
}

// ApplyAll hands each setting to the first matching handler and returns the
// ones nobody claimed. Keys are lower-cased and trimmed.
func (a Applier) ApplyAll(settings map[string]string) (map[string]string, error) {
	if len(settings) == 0 || len(a.handlers) == 0 {
		return settings, nil
	}
	left := make(map[string]string)
	for _, k := range sortedKeys(settings) {
		v := settings[k]
		key := normalizeKey(k)
		if key == "" {
			continue
		}
		applied := false
		for _, h := range a.handlers {
			if h.Match != nil && h.Match(key) {
				if h.Apply != nil {
					if err := h.Apply(key, v); err != nil {
						return nil, err
					}
				}
				applied = true
				break
			}
		}
		if !applied {
			left[key] = v
		}
	}
	return left, nil
}

// Apply is ApplyAll for a single pair; an unclaimed key is an error.
func (a Applier) Apply(key, val string) error {
	left, err := a.ApplyAll(map[string]string{key: val})
	if err != nil {
		return err
	}
	if len(left) > 0 {
		return errdef.New(errdef.CodeConfig, "unknown setting %q", normalizeKey(key))
	}
	return nil
}

func PrefixMatcher(prefixes ...string) Matcher {
	return func(key string) bool {
		lower := normalizeKey(key)
		for _, p := range prefixes {
			if strings.HasPrefix(lower, normalizeKey(p)) {
				return true
			}
		}
		return false
	}
}

func ExactMatcher(keys ...string) Matcher {
	return func(key string) bool {
		lower := normalizeKey(key)
		for _, k := range keys {
			if lower == normalizeKey(k) {
				return true
			}
		}
		return false
	}
}

// ParsePairs reads "key=value" items. Later items win.
func ParsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errdef.New(errdef.CodeConfig, "invalid setting %q, expected key=value", p)
		}
		out[normalizeKey(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func Merge(scopes ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, scope := range scopes {
		for k, v := range scope {
			out[k] = v
		}
	}
	return out
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.ReplaceAll(k, "_", "-")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

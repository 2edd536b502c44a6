package services

import (
	"path"
	"regexp"
	"strings"
)

// KeyResolver lists the blob storage keys a document's bytes may live
// under. Older uploads used several layouts, so lookups try each in turn.
type KeyResolver struct {
	transforms []keyTransform
}

// keyTransform derives one candidate key. An empty result means the
// transform does not apply.
type keyTransform func(userID, filename, storedKey string) string

// NewKeyResolver creates a resolver with the known storage layouts,
// stored key first.
func NewKeyResolver() *KeyResolver {
	return &KeyResolver{transforms: []keyTransform{
		func(_, _, stored string) string { return stored },
		func(user, filename, _ string) string { return join("knowledge-base", user, filename) },
		func(user, _, stored string) string { return join("knowledge-base", user, base(stored)) },
		func(user, _, stored string) string { return join("uploads", user, base(stored)) },
		func(user, filename, _ string) string { return join(user, "knowledge-base", user, filename) },
		func(user, _, stored string) string { return join(user, "knowledge-base", user, base(stored)) },
		func(user, filename, _ string) string { return join(user, "knowledge-base", filename) },
		func(user, _, stored string) string { return join(user, "knowledge-base", base(stored)) },
	}}
}

// CanonicalKey is the key new uploads are stored under.
func CanonicalKey(userID, filename string) string {
	return join("knowledge-base", userID, base(filename))
}

// UserPrefix is the blob prefix holding a user's canonical keys.
func UserPrefix(userID string) string {
	return join("knowledge-base", userID)
}

// Candidates returns the safe, de-duplicated keys to try for a document,
// in order.
func (r *KeyResolver) Candidates(userID, filename, storedKey string) []string {
	filename = base(filename)
	storedKey = NormaliseKey(storedKey)

	seen := make(map[string]struct{}, len(r.transforms))
	var keys []string
	for _, transform := range r.transforms {
		key := NormaliseKey(transform(userID, filename, storedKey))
		if !IsSafeKey(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Fallback returns the first candidate that differs from the stored key,
// or "" when there is none.
func (r *KeyResolver) Fallback(userID, filename, storedKey string) string {
	stored := NormaliseKey(storedKey)
	for _, key := range r.Candidates(userID, filename, storedKey) {
		if key != stored {
			return key
		}
	}
	return ""
}

// NormaliseKey strips leading slashes and converts backslashes.
func NormaliseKey(key string) string {
	return strings.TrimLeft(strings.ReplaceAll(key, `\`, "/"), "/")
}

// IsSafeKey reports whether key is a relative object path. URLs, absolute
// paths, backslashes and parent references are rejected.
func IsSafeKey(key string) bool {
	if key == "" {
		return false
	}
	if strings.Contains(key, "://") || strings.Contains(key, `\`) {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return false
	}
	return true
}

var driveLetter = regexp.MustCompile(`^[a-zA-Z]:\\`)

// IsLegacyPath reports whether a stored path came from the old local-disk
// upload layout.
func IsLegacyPath(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" {
		return false
	}
	return strings.Contains(p, "tmp/uploads/") ||
		strings.HasPrefix(p, "../") ||
		strings.HasPrefix(p, `..\`) ||
		driveLetter.MatchString(p)
}

func base(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return path.Base(p)
}

// join builds a key from parts, returning "" if any part is empty.
func join(parts ...string) string {
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, "/")
}

/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package naming

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Prefix is prepended to every preview namespace name.
const Prefix = "staging-"

// maxPreviewNameLength is the longest slug kept verbatim by PreviewName.
const maxPreviewNameLength = 20

var invalidSlugChars = regexp.MustCompile(`[^-a-z0-9]`)

// SlugFunc maps a branch name to the tenant slug of the legacy naming scheme.
type SlugFunc func(branch string) string

// Names holds both candidate namespace names for one branch.
type Names struct {
	Legacy  string
	Current string
}

// Mapper computes namespace names from branch names.
type Mapper struct {
	slug SlugFunc
}

// NewMapper creates a Mapper using the given legacy slug function.
// If slug is nil, PreviewName is used.
func NewMapper(slug SlugFunc) *Mapper {
	if slug == nil {
		slug = PreviewName
	}
	return &Mapper{slug: slug}
}

// ForBranch returns the legacy and current namespace names for a branch.
func (m *Mapper) ForBranch(branch string) Names {
	return Names{
		Legacy:  Prefix + m.slug(branch),
		Current: CurrentName(branch),
	}
}

// ExpectedSet returns the union of both naming schemes over all branches.
func (m *Mapper) ExpectedSet(branches []string) Set {
	set := make(Set, 2*len(branches))
	for _, branch := range branches {
		names := m.ForBranch(branch)
		set[names.Legacy] = struct{}{}
		set[names.Current] = struct{}{}
	}
	return set
}

// CurrentName returns the namespace name of the current naming scheme.
func CurrentName(branch string) string {
	return Prefix + strings.ReplaceAll(norm.NFC.String(branch), "/", "-")
}

// PreviewName is the default legacy slug. Names longer than 20 characters are
// shortened to the first 10 sanitized characters plus the first 10 hex
// characters of the SHA-256 of the sanitized name, so collisions are possible
// but unlikely.
func PreviewName(branch string) string {
	sanitized := strings.TrimPrefix(branch, "refs/heads/")
	sanitized = invalidSlugChars.ReplaceAllString(strings.ToLower(sanitized), "-")

	if len(sanitized) <= maxPreviewNameLength {
		return sanitized
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(sanitized)))
	return sanitized[:10] + hash[:10]
}

// Set is a set of namespace names.
type Set map[string]struct{}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names in the set.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the names in lexical order.
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

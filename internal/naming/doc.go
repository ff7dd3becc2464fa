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

// Package naming maps version-control branch names to the namespace names that
// may back a preview environment for that branch.
//
// Two naming schemes are live at the same time while previews migrate from one
// to the other, so every branch yields two candidate names:
//
//	Current: "staging-" + NFC(branch) with every "/" replaced by "-"
//	Legacy:  "staging-" + slug(branch)
//
// The slug function is pluggable. The default, PreviewName, keeps short
// sanitized names as they are and truncates long ones to a 10 character
// prefix followed by 10 hex characters of a SHA-256 hash:
//
//	feature/foo                     -> feature-foo
//	mads/some-very-long-branch-name -> mads-some-<10 hex chars>
//
// Example usage:
//
//	mapper := naming.NewMapper(nil) // default slug
//	expected := mapper.ExpectedSet([]string{"main", "feature/foo"})
//	if expected.Has("staging-feature-foo") {
//		// namespace backs a live branch
//	}
package naming

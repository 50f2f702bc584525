// Copyright 2026 The Cascade Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pathutil implements the slash-separated, segment-escaped path
// grammar shared by the configuration tree: splitting a path into segments,
// escaping/unescaping a single segment so it can be embedded in a path, and
// combining a base path with child segments.
package pathutil

import (
	"strings"

	"github.com/cascadefs/cascade/cfgerr"
)

// ValidityChecker is the subset of a persistence strategy's capabilities
// that path validation needs. A concrete strategy (e.g. xmlpersist.Strategy)
// satisfies this interface structurally.
type ValidityChecker interface {
	IsValidConfigurationName(name string) bool
	IsValidItemName(name string) bool
}

const (
	delimSlash     = '/'
	delimBackslash = '\\'
)

func isDelimiter(r byte) bool {
	return r == delimSlash || r == delimBackslash
}

// Escape returns segment with every backslash and forward slash replaced by
// a backslash-prefixed escape sequence, so the result can be safely embedded
// as a single path segment.
func Escape(segment string) string {
	var b strings.Builder
	b.Grow(len(segment) + 4)
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isDelimiter(c) {
			b.WriteByte(delimBackslash)
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape reverses Escape: backslash-prefixed delimiters become the bare
// delimiter again. A backslash not followed by a delimiter is passed through
// unchanged (it was never a valid escape sequence).
func Unescape(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c == delimBackslash && i+1 < len(segment) && isDelimiter(segment[i+1]) {
			b.WriteByte(segment[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ContainsUnescapedSeparator reports whether s contains a '/' or '\' that
// acts as a delimiter rather than as part of a backslash-escape sequence.
func ContainsUnescapedSeparator(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == delimBackslash && i+1 < len(s) && isDelimiter(s[i+1]) {
			i++
			continue
		}
		if isDelimiter(c) {
			return true
		}
	}
	return false
}

// Split breaks path into its unescaped, non-empty segments. Delimiters ('/'
// and '\') are recognized except when preceded by an odd number of
// backslashes, in which case they are part of an escape sequence and are
// folded into the surrounding segment. Whitespace-only segments are
// discarded. A path with zero non-empty segments is rejected.
//
// If checkValidity is true and strategy is non-nil, every intermediate
// segment must satisfy strategy.IsValidConfigurationName, and the last
// segment must satisfy IsValidItemName if isItemPath, else
// IsValidConfigurationName.
func Split(path string, isItemPath, checkValidity bool, strategy ValidityChecker) ([]string, error) {
	var segments []string
	var cur strings.Builder

	flush := func() {
		seg := cur.String()
		cur.Reset()
		if strings.TrimSpace(seg) == "" {
			return
		}
		segments = append(segments, seg)
	}

	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == delimBackslash && i+1 < len(path) && isDelimiter(path[i+1]) {
			cur.WriteByte(path[i+1])
			i++
			continue
		}
		if isDelimiter(c) {
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()

	if len(segments) == 0 {
		return nil, cfgerr.New(cfgerr.InvalidArgument, "pathutil.Split", path, nil)
	}

	if checkValidity && strategy != nil {
		for i, seg := range segments {
			last := i == len(segments)-1
			var ok bool
			if last && isItemPath {
				ok = strategy.IsValidItemName(seg)
			} else {
				ok = strategy.IsValidConfigurationName(seg)
			}
			if !ok {
				return nil, cfgerr.New(cfgerr.InvalidArgument, "pathutil.Split", path, nil)
			}
		}
	}

	return segments, nil
}

// Combine joins base with the escaped form of each segment, separated by
// '/'. The special base "/" omits the leading separator (the result starts
// with a single '/').
func Combine(base string, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = Escape(s)
	}
	joined := strings.Join(escaped, "/")
	if base == "/" {
		return "/" + joined
	}
	return base + "/" + joined
}

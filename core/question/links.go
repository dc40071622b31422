package question

import (
	"regexp"
	"strconv"
	"strings"
)

// Match is one file link found in a payload string.
type Match struct {
	Full       string // the whole matched text
	Start, End int    // byte offsets of Full in the searched string

	FileID    int64
	HasFileID bool
	// Path is the percent-decoded path, e.g. "course files/unfiled/test.jpg".
	Path string

	Query    string
	HasQuery bool // a "?" followed the link, even with an empty query
}

type refKey struct {
	id   int64
	path string
}

// key identifies the file a match refers to: its id, or its decoded path.
func (m Match) key() refKey {
	if m.HasFileID {
		return refKey{id: m.FileID}
	}
	return refKey{path: m.Path}
}

// LinkMatcher finds links to the files of one context, in either form:
//
//	/courses/15395/files/11454/download?wrap=1
//	/courses/15395/file_contents/course%20files/unfiled/test.jpg
type LinkMatcher struct {
	contextType string
	contextID   int64
	re          *regexp.Regexp
}

func NewLinkMatcher(contextType string, contextID int64) *LinkMatcher {
	prefix := "/" + pluralize(strings.ToLower(contextType)) + "/" + strconv.FormatInt(contextID, 10) + "/"
	re := regexp.MustCompile(regexp.QuoteMeta(prefix) +
		`(?:files/(\d+)/(?:download|preview)|file_contents/(course%20files/[^'"?]*))(?:\?([^'"]*))?`)
	return &LinkMatcher{contextType: contextType, contextID: contextID, re: re}
}

func (lm *LinkMatcher) String() string { return lm.re.String() }

// Each calls fn for every link in s, left to right, until fn returns false.
// Matches are found one at a time, so stopping early skips the rest of s.
func (lm *LinkMatcher) Each(s string, fn func(Match) bool) {
	for pos := 0; pos < len(s); {
		loc := lm.re.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			return
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += pos
			}
		}
		if !fn(newMatch(s, loc)) {
			return
		}
		pos = loc[1]
	}
}

func (lm *LinkMatcher) Matches(s string) []Match {
	var matches []Match
	lm.Each(s, func(m Match) bool {
		matches = append(matches, m)
		return true
	})
	return matches
}

// ReplaceAll returns a copy of s with every link replaced by fn's result.
func (lm *LinkMatcher) ReplaceAll(s string, fn func(Match) string) string {
	var (
		b    strings.Builder
		last int
	)
	lm.Each(s, func(m Match) bool {
		b.WriteString(s[last:m.Start])
		b.WriteString(fn(m))
		last = m.End
		return true
	})
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func newMatch(s string, loc []int) Match {
	m := Match{Full: s[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
	if loc[2] >= 0 {
		m.HasFileID = true
		// an id too large for int64 stays 0 and never resolves
		m.FileID, _ = strconv.ParseInt(s[loc[2]:loc[3]], 10, 64)
	}
	if loc[4] >= 0 {
		m.Path = unescape(s[loc[4]:loc[5]])
	}
	if loc[6] >= 0 {
		m.HasQuery = true
		m.Query = s[loc[6]:loc[7]]
	}
	return m
}

// unescape decodes every well-formed %XX sequence and keeps any other '%' as is.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// pluralize covers the context types files can belong to (course, group, user, account...).
func pluralize(word string) string {
	switch {
	case word == "":
		return word
	case len(word) > 1 && strings.HasSuffix(word, "y") && !strings.ContainsRune("aeiou", rune(word[len(word)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSection labels text that precedes the first detected heading.
const DefaultSection = "General"

const (
	maxHeadingRunes = 120
	maxHeadingWords = 10
)

var (
	// The first character after the number must not be lowercase or a
	// digit, so quantities like "2.0 mg/kg" and "3 mm" are body text.
	numberedHeading = regexp.MustCompile(`^\d{1,3}(\.\d{1,3})*\.?\s+[^\s\p{Ll}\d]`)
	keywordHeading  = regexp.MustCompile(`(?i)^(chapter|section|article|annex|appendix|part)\s+([0-9]+|[IVXLC]+|[A-Z])\b`)
	cjkHeading      = regexp.MustCompile(`^第[一二三四五六七八九十百千零〇0-9]+[章节条部]`)
	requirementVerb = regexp.MustCompile(`(?i)\b(shall|must|should)\b`)
)

// Section is a heading-delimited span of a document. Body starts with the
// heading line(s) that opened the section.
type Section struct {
	Title string
	Body  string
}

// IsHeading reports whether a single line looks like a section heading:
// a numbered heading, a structure keyword (chapter, article, annex...),
// a CJK chapter marker or an ALL-CAPS line.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return false
	}
	return isNumberedHeading(line) ||
		keywordHeading.MatchString(line) ||
		cjkHeading.MatchString(line) ||
		isAllCaps(line)
}

// Numbered clauses in regulations are often full requirement sentences
// ("1. Toys shall not ..."); those stay in the body.
func isNumberedHeading(line string) bool {
	if !numberedHeading.MatchString(line) {
		return false
	}
	if endsSentence(line) || requirementVerb.MatchString(line) {
		return false
	}
	return len(strings.Fields(line)) <= maxHeadingWords
}

func isAllCaps(line string) bool {
	if endsSentence(line) || strings.ContainsAny(line, "<>=%+") {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 5
}

func endsSentence(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(line)
	return strings.ContainsRune(".,;:!?。；，", r)
}

// SplitSections splits text into sections at heading lines. Heading lines
// are kept as the first lines of the section body so no document text is
// lost. Consecutive headings with nothing between them open a single
// section titled by the last one. Sections whose body is blank are dropped.
func SplitSections(text string) []Section {
	var (
		out        []Section
		title      = DefaultSection
		body       strings.Builder
		hasContent bool
	)
	flush := func() {
		if b := strings.TrimSpace(body.String()); b != "" {
			out = append(out, Section{Title: title, Body: b})
		}
		body.Reset()
		hasContent = false
	}
	for _, line := range strings.Split(text, "\n") {
		if IsHeading(line) {
			if hasContent {
				flush()
			}
			title = strings.TrimSpace(line)
			body.WriteString(title)
			body.WriteByte('\n')
			continue
		}
		if strings.TrimSpace(line) != "" {
			hasContent = true
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return out
}

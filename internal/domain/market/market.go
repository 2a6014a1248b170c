// Package market defines the closed set of export markets and the tag aliases
// used to scope regulatory documents to them.
package market

import (
	"fmt"
	"sort"
	"strings"
)

// Market is a target export market or the ingestion-only Global tag.
type Market string

// Target markets and the universal document tag.
const (
	US            Market = "US"
	Europe        Market = "EUROPE"
	MiddleEast    Market = "MIDDLE_EAST"
	SoutheastAsia Market = "SOUTHEAST_ASIA"
	JapanKorea    Market = "JAPAN_KOREA"

	// Global tags documents that apply to every market. Never a valid target.
	Global Market = "Global"
)

// Targets lists every market an assessment can be requested for.
var Targets = []Market{US, Europe, MiddleEast, SoutheastAsia, JapanKorea}

// folderNames maps source-document folders to the market they are tagged with.
var folderNames = map[string]Market{
	"us":             US,
	"eu":             Europe,
	"middle_east":    MiddleEast,
	"southeast_asia": SoutheastAsia,
	"japan_korea":    JapanKorea,
	"global":         Global,
}

// localized holds the Chinese labels used by legacy indexes built from the
// manufacturer-facing document tree.
var localized = map[Market]string{
	US:            "美国",
	Europe:        "欧盟",
	MiddleEast:    "中东",
	SoutheastAsia: "东南亚",
	JapanKorea:    "日韩",
}

// aliasTable is the retrieval allow-list per target market.
var aliasTable = buildAliasTable()

func buildAliasTable() map[Market][]string {
	table := make(map[Market][]string, len(Targets))
	for _, m := range Targets {
		tags := []string{string(m)}
		if folder, ok := FolderFor(m); ok {
			tags = append(tags, folder)
		}
		if label, ok := localized[m]; ok {
			tags = append(tags, label)
		}
		tags = append(tags, string(Global))
		table[m] = tags
	}
	return table
}

// Parse validates a caller-supplied target market. Global is rejected.
func Parse(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range Targets {
		if t == m {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target market %q (want one of %s)", s, strings.Join(targetNames(), ", "))
}

// FromFolder resolves a source folder name (case-insensitive) to its market tag.
func FromFolder(name string) (Market, bool) {
	m, ok := folderNames[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// FolderFor returns the source folder name for m.
func FolderFor(m Market) (string, bool) {
	for folder, fm := range folderNames {
		if fm == m {
			return folder, true
		}
	}
	return "", false
}

// Aliases returns the chunk market tags that satisfy a retrieval for m:
// the market itself, its folder and localized aliases, and Global.
// Markets missing from the alias table fall back to [m, Global].
func Aliases(m Market) []string {
	if tags, ok := aliasTable[m]; ok {
		out := make([]string, len(tags))
		copy(out, tags)
		return out
	}
	return []string{string(m), string(Global)}
}

// Matcher returns a set lookup for Aliases(m).
func Matcher(m Market) map[string]struct{} {
	tags := Aliases(m)
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// UnmatchedTags returns the sorted distinct tags that no target market's alias set
// accepts. Chunks carrying them can never be retrieved.
func UnmatchedTags(tags []string) []string {
	known := make(map[string]struct{})
	for _, m := range Targets {
		for _, t := range Aliases(m) {
			known[t] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tags {
		if _, ok := known[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func targetNames() []string {
	names := make([]string, len(Targets))
	for i, t := range Targets {
		names[i] = string(t)
	}
	return names
}

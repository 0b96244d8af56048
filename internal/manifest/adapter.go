package manifest

import (
	"strings"
)

const marker = "@"

// Adapter abstracts the differences between manifest generations.
type Adapter interface {
	// Version is the manifest version the adapter handles.
	Version() int
	// CountOptimizable counts archive entries under a media directory.
	CountOptimizable(entries []string) int
	// References lists the logo first (when set), then images, videos, and
	// audio, each group in document order.
	References(doc *Document) []Reference
	// Candidates lists archive paths that may hold an asset of the given kind
	// referenced as raw, in the order they should be tried.
	Candidates(kind Kind, raw string) []string
	// Rewrite points ref at newName.
	Rewrite(ref Reference, newName string)
}

var adapters = map[int]Adapter{
	4: v4Adapter{},
	5: v5Adapter{},
}

// ForVersion returns the adapter for a manifest version.
func ForVersion(version int) (Adapter, bool) {
	adapter, ok := adapters[version]
	return adapter, ok
}

// SupportedVersions lists the manifest versions with an adapter.
func SupportedVersions() []int {
	return []int{4, 5}
}

func countOptimizable(entries []string) int {
	count := 0
	for _, entry := range entries {
		for _, kind := range Kinds {
			if strings.HasPrefix(entry, kind.Prefix()) {
				count++
				break
			}
		}
	}
	return count
}

func references(doc *Document, tag string, typeOf func(string) (Kind, bool)) []Reference {
	var refs []Reference
	if logo, ok := doc.logoReference(); ok {
		refs = append(refs, logo)
	}
	return append(refs, doc.nodeReferences(tag, typeOf)...)
}

func stripMarker(raw string) string {
	return strings.TrimPrefix(raw, marker)
}

// unescapeAmpersands undoes the double escaping some editors leave in names.
func unescapeAmpersands(name string) string {
	return strings.ReplaceAll(name, "&amp;", "&")
}

func prefixed(kind Kind, names ...string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		path := kind.Prefix() + name
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}

type v4Adapter struct{}

func (v4Adapter) Version() int { return 4 }

func (v4Adapter) CountOptimizable(entries []string) int { return countOptimizable(entries) }

func (v4Adapter) References(doc *Document) []Reference {
	return references(doc, "atom", func(value string) (Kind, bool) {
		switch value {
		case "image":
			return KindImage, true
		case "video":
			return KindVideo, true
		case "voice":
			return KindAudio, true
		default:
			return "", false
		}
	})
}

func (v4Adapter) Candidates(kind Kind, raw string) []string {
	return prefixed(kind, Quote(unescapeAmpersands(stripMarker(raw))))
}

func (v4Adapter) Rewrite(ref Reference, newName string) {
	setReference(ref, marker+newName)
}

type v5Adapter struct{}

func (v5Adapter) Version() int { return 5 }

func (v5Adapter) CountOptimizable(entries []string) int { return countOptimizable(entries) }

func (v5Adapter) References(doc *Document) []Reference {
	return references(doc, "item", func(value string) (Kind, bool) {
		switch Kind(value) {
		case KindImage, KindVideo, KindAudio:
			return Kind(value), true
		default:
			return "", false
		}
	})
}

func (v5Adapter) Candidates(kind Kind, raw string) []string {
	name := stripMarker(raw)
	unescaped := unescapeAmpersands(name)
	return prefixed(kind,
		strings.TrimSpace(Quote(unescaped)),
		strings.TrimSpace(unescaped),
		strings.TrimSpace(name),
	)
}

func (v5Adapter) Rewrite(ref Reference, newName string) {
	if ref.Logo {
		setReference(ref, marker+newName)
		return
	}
	setReference(ref, newName)
}

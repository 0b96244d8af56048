package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrNoPackage reports a manifest without a <package> root.
var ErrNoPackage = errors.New("manifest has no package element")

// Kind classifies a media reference.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Kinds lists media kinds in the order references are processed.
var Kinds = []Kind{KindImage, KindVideo, KindAudio}

// Prefix returns the archive directory holding assets of this kind.
func (k Kind) Prefix() string {
	switch k {
	case KindImage:
		return "Images/"
	case KindVideo:
		return "Video/"
	case KindAudio:
		return "Audio/"
	default:
		return ""
	}
}

func (k Kind) String() string { return string(k) }

// Reference is one media name found in the manifest.
type Reference struct {
	Kind Kind
	// Raw is the name exactly as written in the manifest.
	Raw string
	// Logo marks the package logo attribute rather than a media node.
	Logo bool

	elem *etree.Element
}

// Name returns the reference without its leading '@' marker.
func (r Reference) Name() string {
	return strings.TrimSpace(stripMarker(r.Raw))
}

// Document is a parsed manifest. Mutations happen in place; Bytes serialises
// the current tree.
type Document struct {
	doc  *etree.Document
	root *etree.Element
}

// Parse reads manifest XML.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	root := doc.FindElement("//package")
	if root == nil {
		return nil, ErrNoPackage
	}
	return &Document{doc: doc, root: root}, nil
}

// Version returns the integer version attribute of the package element.
func (d *Document) Version() (int, error) {
	raw := strings.TrimSpace(d.root.SelectAttrValue("version", ""))
	if raw == "" {
		return 0, errors.New("manifest package has no version attribute")
	}
	// Some editors write "4.0"; only the integral part selects an adapter.
	if head, _, ok := strings.Cut(raw, "."); ok {
		raw = head
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("manifest version %q is not an integer: %w", raw, err)
	}
	return version, nil
}

// Name returns the package name attribute.
func (d *Document) Name() string {
	return d.root.SelectAttrValue("name", "")
}

// Bytes serialises the manifest.
func (d *Document) Bytes() ([]byte, error) {
	data, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize manifest: %w", err)
	}
	return data, nil
}

func (d *Document) logoReference() (Reference, bool) {
	raw := d.root.SelectAttrValue("logo", "")
	if strings.TrimSpace(raw) == "" {
		return Reference{}, false
	}
	return Reference{Kind: KindImage, Raw: raw, Logo: true, elem: d.root}, true
}

// nodeReferences collects <tag type=...> nodes grouped by kind in Kinds order,
// each group in document order. typeOf maps a type attribute to a kind.
func (d *Document) nodeReferences(tag string, typeOf func(string) (Kind, bool)) []Reference {
	groups := make(map[Kind][]Reference, len(Kinds))
	for _, elem := range d.doc.FindElements("//" + tag) {
		kind, ok := typeOf(elem.SelectAttrValue("type", ""))
		if !ok {
			continue
		}
		groups[kind] = append(groups[kind], Reference{Kind: kind, Raw: elem.Text(), elem: elem})
	}
	var refs []Reference
	for _, kind := range Kinds {
		refs = append(refs, groups[kind]...)
	}
	return refs
}

func setReference(ref Reference, value string) {
	if ref.elem == nil {
		return
	}
	if ref.Logo {
		ref.elem.CreateAttr("logo", value)
		return
	}
	ref.elem.SetText(value)
}

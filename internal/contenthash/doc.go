// Package contenthash derives content-addressed names for pack assets and
// uploaded packs.
//
// Two byte-identical assets always map to the same name, which lets the pack
// writer store a shared asset once no matter how many questions reference it.
package contenthash

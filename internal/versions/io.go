package versions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ManifestEntry describes one selected release in a manifest.
type ManifestEntry struct {
	Tag        string              `json:"tag"`
	Version    Version             `json:"version"`
	Latest     bool                `json:"latest,omitempty"`
	MinorAlias bool                `json:"minorAlias,omitempty"`
	Assets     map[Platform]string `json:"assets"`
	SHA256     map[Platform]string `json:"sha256,omitempty"`
}

// Manifest is a selection keyed by version string. Order lists the keys
// newest first and fixes the order they are written in.
type Manifest struct {
	Order   []string
	Entries map[string]ManifestEntry
}

func ManifestFor(sel Selection) Manifest {
	manifest := Manifest{
		Order:   make([]string, 0, len(sel.All)),
		Entries: make(map[string]ManifestEntry, len(sel.All)),
	}

	for _, r := range slices.Backward(sel.All) {
		key := r.Version.String()
		alias, ok := sel.Minors[r.Version.MinorLine()]
		manifest.Order = append(manifest.Order, key)
		manifest.Entries[key] = ManifestEntry{
			Tag:        r.Tag,
			Version:    r.Version,
			Latest:     r.Version == sel.Latest.Version,
			MinorAlias: ok && alias.Version == r.Version,
			Assets:     r.Assets,
			SHA256:     r.SHA256,
		}
	}

	return manifest
}

func WriteManifest(path string, manifest Manifest) error {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("{\n")

	for index, version := range manifest.Order {
		meta, ok := manifest.Entries[version]
		if !ok {
			continue
		}

		key, err := json.Marshal(version)
		if err != nil {
			return fmt.Errorf("encode manifest key: %w", err)
		}

		value, err := json.MarshalIndent(meta, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode manifest value: %w", err)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if index < len(manifest.Order)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}

	buf.WriteString("}\n")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Package manifest turns an extracted repository into an ordered tree of
// file and directory entries plus the flat file listing shown to the model.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrNotDirectory = errors.New("manifest: root is not a directory")

type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is one node of the manifest tree. Path is relative to the extraction
// root with forward slashes; the root itself is ".".
type Entry struct {
	Path     string   `json:"path"`
	Kind     Kind     `json:"type"`
	Children []*Entry `json:"children,omitempty"`
}

// Options tunes the walk.
type Options struct {
	// IgnoreDirs lists directory base names that are skipped entirely
	// (e.g. ".git", "node_modules").
	IgnoreDirs []string
}

// Build walks root and returns the manifest tree. Entries within a directory
// are ordered by name, so the flattened file list is deterministic.
func Build(root string, opts Options) (*Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("manifest: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		if d = strings.TrimSpace(d); d != "" {
			ignore[d] = struct{}{}
		}
	}
	b := builder{root: root, ignore: ignore}
	return b.dir(root, ".")
}

type builder struct {
	root   string
	ignore map[string]struct{}
}

func (b builder) dir(abs, rel string) (*Entry, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("manifest: read dir %s: %w", rel, err)
	}
	// os.ReadDir returns entries sorted by file name.
	node := &Entry{Path: rel, Kind: KindDirectory, Children: []*Entry{}}
	for _, de := range entries {
		name := de.Name()
		childRel := name
		if rel != "." {
			childRel = path.Join(rel, name)
		}
		// Symlinks are listed as files and never followed.
		if de.IsDir() {
			if _, skip := b.ignore[name]; skip {
				continue
			}
			child, err := b.dir(filepath.Join(abs, name), childRel)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		node.Children = append(node.Children, &Entry{Path: childRel, Kind: KindFile})
	}
	return node, nil
}

// Files returns every file path in manifest order. Directories are omitted.
func (e *Entry) Files() []string {
	var out []string
	e.walk(func(n *Entry) {
		if n.Kind == KindFile {
			out = append(out, n.Path)
		}
	})
	return out
}

// Count returns the number of files and directories below (and including) e.
func (e *Entry) Count() (files, dirs int) {
	e.walk(func(n *Entry) {
		if n.Kind == KindFile {
			files++
		} else {
			dirs++
		}
	})
	return files, dirs
}

// Contains reports whether p names a File entry.
func (e *Entry) Contains(p string) bool {
	p = CleanPath(p)
	found := false
	e.walk(func(n *Entry) {
		if !found && n.Kind == KindFile && n.Path == p {
			found = true
		}
	})
	return found
}

// CleanPath normalises a repo-relative path to the form used by entries.
func CleanPath(p string) string {
	return path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
}

// Text renders the flat file listing: one relative path per line.
func (e *Entry) Text() string {
	return strings.Join(e.Files(), "\n")
}

// Markdown renders the listing as the prompt-facing block.
func (e *Entry) Markdown() string {
	var b strings.Builder
	b.WriteString("# Project files\n\n```\n")
	for _, f := range e.Files() {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteByte('\n')
	}
	b.WriteString("```")
	return b.String()
}

func (e *Entry) walk(fn func(*Entry)) {
	if e == nil {
		return
	}
	fn(e)
	for _, c := range e.Children {
		c.walk(fn)
	}
}

// Package scanner maps a source tree into a selectable file manifest.
//
// Scanning never reads full file contents and never writes anything; it
// produces the tree a client confirms before ingestion. Folders and
// files known to be noise (dependency dirs, lockfiles, binaries) come
// back pre-deselected rather than hidden, so the selection stays
// user-overridable.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node types in the scanned tree.
const (
	TypeFolder = "folder"
	TypeFile   = "file"
	TypeBinary = "binary"
)

// excludedFolders are auto-deselected by name. The data directory is in
// the list so a knowledge base never ingests itself.
var excludedFolders = map[string]struct{}{
	"node_modules": {}, ".git": {}, "__pycache__": {}, ".venv": {}, ".mypy_cache": {},
	"_logs": {}, "dist": {}, "build": {}, ".vscode": {}, ".idea": {}, "target": {}, "out": {},
	"bin": {}, "obj": {}, "Debug": {}, "Release": {}, "logs": {}, "data": {}, "backend": {},
}

// excludedFilePatterns are glob patterns for files auto-deselected by name.
var excludedFilePatterns = []string{
	"package-lock.json", "yarn.lock", ".DS_Store", "Thumbs.db",
	"*.pyc", "*.pyo", "*.swp", "*.swo", "*.lock",
}

// binaryExtensions force the binary classification without sniffing.
var binaryExtensions = map[string]struct{}{
	".tar.gz": {}, ".gz": {}, ".zip": {}, ".rar": {}, ".7z": {}, ".bz2": {}, ".xz": {}, ".tgz": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {}, ".tif": {}, ".tiff": {},
	".mp3": {}, ".wav": {}, ".ogg": {}, ".flac": {}, ".aac": {}, ".m4a": {},
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".webm": {}, ".flv": {}, ".wmv": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {}, ".odt": {}, ".ods": {}, ".odp": {},
	".exe": {}, ".dll": {}, ".so": {}, ".o": {}, ".a": {}, ".lib": {}, ".app": {}, ".dmg": {}, ".deb": {}, ".rpm": {},
	".db": {}, ".sqlite": {}, ".mdb": {}, ".accdb": {}, ".dat": {}, ".idx": {}, ".pickle": {}, ".joblib": {},
	".pyc": {}, ".pyo": {}, ".class": {}, ".jar": {}, ".wasm": {},
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {},
	".iso": {}, ".img": {}, ".bin": {}, ".bak": {}, ".data": {}, ".asset": {}, ".pak": {},
}

// sniffSize is how many leading bytes are read when classifying a file.
const sniffSize = 1024

// Node is one entry in the scanned tree.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	RelPath  string  `json:"rel_path"`
	Type     string  `json:"type"`
	Checked  bool    `json:"checked"`
	Children []*Node `json:"children"`
	Error    string  `json:"error,omitempty"`
}

// Scanner walks a source root and builds the manifest tree.
type Scanner struct {
	root string
}

// New creates a scanner for a root path, resolved to absolute form.
func New(rootPath string) (*Scanner, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	return &Scanner{root: abs}, nil
}

// Scan builds the full tree. A missing root is an error; unreadable
// subtrees are reported on their node instead of failing the scan.
func (s *Scanner) Scan() (*Node, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", s.root)
	}
	return s.scanPath(s.root, info.IsDir()), nil
}

func (s *Scanner) scanPath(path string, isDir bool) *Node {
	node := &Node{
		Name:     filepath.Base(path),
		Path:     path,
		RelPath:  s.relPath(path),
		Type:     TypeFile,
		Checked:  true,
		Children: []*Node{},
	}

	if isDir {
		node.Type = TypeFolder
		if _, excluded := excludedFolders[node.Name]; excluded {
			node.Checked = false
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			node.Error = "Permission Denied"
			return node
		}

		// Directories first, then case-insensitive by name.
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].IsDir() != entries[j].IsDir() {
				return entries[i].IsDir()
			}
			return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
		})

		for _, entry := range entries {
			child := s.scanPath(filepath.Join(path, entry.Name()), entry.IsDir())
			node.Children = append(node.Children, child)
		}
		return node
	}

	switch {
	case isBinary(path):
		node.Type = TypeBinary
		node.Checked = false
	case isExcludedName(node.Name):
		node.Checked = false
	}
	return node
}

// relPath is relative to the root's parent so the root folder itself
// shows up in display paths.
func (s *Scanner) relPath(path string) string {
	rel, err := filepath.Rel(filepath.Dir(s.root), path)
	if err != nil {
		return path
	}
	return rel
}

// isBinary classifies by compound extension first, then sniffs the
// leading bytes for NULs. Unreadable files count as binary so they are
// deselected rather than failing later.
func isBinary(path string) bool {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		if _, found := binaryExtensions[strings.ToLower(name[i:])]; found {
			return true
		}
	}
	if _, found := binaryExtensions[strings.ToLower(filepath.Ext(name))]; found {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffSize)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

func isExcludedName(name string) bool {
	for _, pattern := range excludedFilePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

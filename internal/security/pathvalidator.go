package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator checks paths handed to the scanner and the cache
type PathValidator struct {
	pseudoRoots []string
}

// NewPathValidator creates a PathValidator with the default kernel
// pseudo file systems, which have no meaningful disk usage
func NewPathValidator() *PathValidator {
	return &PathValidator{
		pseudoRoots: []string{
			"/proc",
			"/sys",
			"/dev",
		},
	}
}

// ValidateScanRoot checks that path is an existing directory worth scanning.
// It returns the path with symlinks resolved, since du is run with -P and
// would otherwise report only the link itself.
func (pv *PathValidator) ValidateScanRoot(path string) (string, error) {
	if err := checkAbsolute(path); err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("scan root does not exist: %s", path)
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	resolved = filepath.Clean(resolved)

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan root is not a directory: %s", path)
	}

	if pv.IsPseudoPath(resolved) {
		return "", fmt.Errorf("refusing to scan pseudo file system: %s", resolved)
	}

	return resolved, nil
}

// ValidateWithinRoot checks that path lies strictly below root. The path
// need not exist, since it is usually one that was just deleted.
func (pv *PathValidator) ValidateWithinRoot(path, root string) error {
	if err := checkAbsolute(path); err != nil {
		return err
	}

	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil {
		return fmt.Errorf("path %s is not under %s", path, root)
	}
	if rel == "." {
		return fmt.Errorf("path is the scan root itself: %s", path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s is not under %s", path, root)
	}

	return nil
}

// IsPseudoPath checks if a path is on a kernel pseudo file system
func (pv *PathValidator) IsPseudoPath(path string) bool {
	cleanPath := filepath.Clean(path)
	for _, root := range pv.pseudoRoots {
		if cleanPath == root || strings.HasPrefix(cleanPath, root+"/") {
			return true
		}
	}
	return false
}

// AddPseudoRoot adds a directory that must never be scanned
func (pv *PathValidator) AddPseudoRoot(path string) {
	pv.pseudoRoots = append(pv.pseudoRoots, filepath.Clean(path))
}

// checkAbsolute rejects relative and unclean paths, and paths containing
// line breaks, which would split du's line-oriented output
func checkAbsolute(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}
	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}
	if strings.ContainsAny(path, "\n\r") {
		return fmt.Errorf("path contains line breaks: %q", path)
	}
	return nil
}

package handler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// splitURLArg splits "url | name" at the first pipe.
func splitURLArg(arg string) (string, string) {
	url, name, _ := strings.Cut(arg, "|")
	return strings.TrimSpace(url), strings.TrimSpace(name)
}

// resolveTarget joins name under dir and rejects names that leave dir.
func resolveTarget(dir, name string) (string, error) {
	if name == "" {
		return "", ErrBadFileName
	}
	root := filepath.Clean(dir)
	target := filepath.Join(root, name)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	return target, nil
}

// safeBaseName reduces a remote file name to a plain base name.
func safeBaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "file"
	}
	return base
}

// uniquePath returns path, or "name_N.ext" when path already exists.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// collectFiles lists regular files under dir in walk order.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// isProtected matches path against protected files by base name or
// absolute path, and against protected directories by containment.
func isProtected(path string, files, dirs []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	base := filepath.Base(abs)

	for _, p := range files {
		if p == "" {
			continue
		}
		if filepath.Base(p) == base {
			return true
		}
		if pAbs, err := filepath.Abs(p); err == nil && pAbs == abs {
			return true
		}
	}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		dAbs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(dAbs, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

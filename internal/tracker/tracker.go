// Package tracker fingerprints the files a manifest was assembled from
// and reports drift between a recorded snapshot and the current disk
// state.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Record is one fingerprint: a root-relative slash-separated path, the
// lowercase hex SHA-256 of the file content, and the modification time
// in epoch seconds.
type Record struct {
	Path     string
	Hash     string
	Modified int64
}

// Snapshot fingerprints the given files and directories. Directories
// are walked recursively with the root's .gitignore patterns honored
// and .git and .modmap always skipped; explicit file inputs are taken
// as given. Inputs that do not exist are skipped. Paths in the result
// are relative to root, slash-separated, and sorted.
func Snapshot(root string, inputs []string) ([]Record, error) {
	matcher, err := loadGitignoreMatcher(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]Record)
	for _, input := range inputs {
		if input == "" {
			continue
		}
		info, err := os.Stat(input)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			rel, err := relSlash(root, input)
			if err != nil {
				return nil, err
			}
			rec, err := fingerprint(input, rel)
			if err != nil {
				return nil, err
			}
			seen[rec.Path] = rec
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if shouldSkipDir(d.Name(), path, root, matcher) {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := relSlash(root, path)
			if err != nil {
				return err
			}
			if ignored(matcher, rel, false) {
				return nil
			}
			rec, err := fingerprint(path, rel)
			if err != nil {
				return err
			}
			seen[rec.Path] = rec
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	records := make([]Record, 0, len(seen))
	for _, rec := range seen {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// DiffResult reports drift between two snapshots, each list sorted.
type DiffResult struct {
	Added    []string
	Modified []string
	Removed  []string
}

// IsClean reports whether the two snapshots agree.
func (d *DiffResult) IsClean() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Diff compares a recorded snapshot against the current one. A path
// only in current is added, only in recorded is removed, and in both
// with differing hashes is modified. Modification times do not
// participate; content equality is what counts.
func Diff(recorded, current []Record) *DiffResult {
	prev := make(map[string]string, len(recorded))
	for _, r := range recorded {
		prev[r.Path] = r.Hash
	}
	cur := make(map[string]string, len(current))
	for _, r := range current {
		cur[r.Path] = r.Hash
	}

	result := &DiffResult{}
	for path, hash := range cur {
		old, ok := prev[path]
		if !ok {
			result.Added = append(result.Added, path)
			continue
		}
		if old != hash {
			result.Modified = append(result.Modified, path)
		}
	}
	for path := range prev {
		if _, ok := cur[path]; !ok {
			result.Removed = append(result.Removed, path)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Modified)
	sort.Strings(result.Removed)
	return result
}

// fingerprint reads and hashes one file.
func fingerprint(path, rel string) (Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, err
	}
	sum := sha256.Sum256(content)
	return Record{
		Path:     rel,
		Hash:     hex.EncodeToString(sum[:]),
		Modified: info.ModTime().Unix(),
	}, nil
}

// relSlash returns the path relative to root in slash form.
func relSlash(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// shouldSkipDir checks if a directory should be skipped during walks.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if name == ".git" || name == ".modmap" {
		return true
	}
	rel, err := relSlash(root, path)
	if err != nil {
		return false
	}
	return ignored(matcher, rel, true)
}

// ignored checks a root-relative slash path against the gitignore
// matcher.
func ignored(matcher gitignore.Matcher, rel string, isDir bool) bool {
	if matcher == nil || rel == "." {
		return false
	}
	return matcher.Match(strings.Split(rel, "/"), isDir)
}

// loadGitignoreMatcher loads .gitignore patterns from the root. A
// missing .gitignore yields a nil matcher.
func loadGitignoreMatcher(root string) (gitignore.Matcher, error) {
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return gitignore.NewMatcher(patterns), nil
}

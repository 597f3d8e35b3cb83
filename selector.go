package uploadkit

import (
	"context"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// FileSelector filters listing results and steers traversal. Selectors
// compose with And, Or, and Not, and drivers may inspect them for native
// shortcuts.
//
//	selector := uploadkit.And(
//	    uploadkit.Glob("*.pdf"),
//	    uploadkit.FuncSelector(func(f *uploadkit.FileInfo) bool {
//	        return f.Size < 10*1024*1024
//	    }),
//	)
//	files, err := uploadkit.ListWithSelector(ctx, fs, "/archive", selector, true)
type FileSelector interface {
	// Match reports whether the file belongs in the results.
	Match(file *FileInfo) bool

	// TraverseDescendants reports whether to descend into a directory.
	// Returning false prunes the directory and everything below it.
	// Called for directories only.
	TraverseDescendants(file *FileInfo) bool
}

// ListWithSelector lists the files under path that the selector accepts,
// descending into subdirectories when recursive is set. A nil selector
// accepts everything.
func ListWithSelector(ctx context.Context, fs FileSystem, path string, selector FileSelector, recursive bool) ([]FileInfo, error) {
	if selector == nil {
		selector = All()
	}

	var results []FileInfo
	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := fs.ListContents(ctx, dir, false)
		if err != nil {
			return err
		}
		for _, file := range files {
			switch {
			case file.IsDir:
				if recursive && selector.TraverseDescendants(file) {
					if err := walk(file.Path); err != nil {
						return err
					}
				}
			case selector.Match(file):
				results = append(results, *file)
			}
		}
		return nil
	}

	if err := walk(path); err != nil {
		return nil, err
	}
	return results, nil
}

// AllSelector accepts every file and descends into every directory.
type AllSelector struct{}

func (AllSelector) Match(*FileInfo) bool               { return true }
func (AllSelector) TraverseDescendants(*FileInfo) bool { return true }

// All returns a selector that accepts everything.
func All() FileSelector { return AllSelector{} }

type globSelector struct {
	g glob.Glob
}

// Glob selects by matching the file name against a glob pattern with
// the *, ?, [abc], [a-z], and {alt1,alt2} forms. An invalid pattern
// selects nothing.
//
//	Glob("*.pdf")
//	Glob("scan_????.tiff")
//	Glob("{invoice,receipt}_*.docx")
func Glob(pattern string) FileSelector {
	g, err := glob.Compile(pattern)
	if err != nil {
		return &globSelector{}
	}
	return &globSelector{g: g}
}

func (s *globSelector) Match(file *FileInfo) bool {
	return s.g != nil && s.g.Match(file.Name)
}

func (s *globSelector) TraverseDescendants(*FileInfo) bool { return true }

type depthSelector struct {
	limit int
	base  string
}

// Depth selects files at most limit levels below base and prunes
// traversal past that depth. Limit 1 keeps immediate children only.
func Depth(limit int, base string) FileSelector {
	return &depthSelector{
		limit: limit,
		base:  strings.TrimSuffix(base, "/"),
	}
}

func (s *depthSelector) depthOf(p string) int {
	rel := strings.Trim(strings.TrimPrefix(p, s.base), "/")
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func (s *depthSelector) Match(file *FileInfo) bool { return s.depthOf(file.Path) <= s.limit }

func (s *depthSelector) TraverseDescendants(file *FileInfo) bool {
	return s.depthOf(file.Path) < s.limit
}

type andSelector struct {
	selectors []FileSelector
}

// And accepts a file only when every selector does.
func And(selectors ...FileSelector) FileSelector { return &andSelector{selectors: selectors} }

func (s *andSelector) Match(file *FileInfo) bool {
	for _, sel := range s.selectors {
		if !sel.Match(file) {
			return false
		}
	}
	return true
}

// TraverseDescendants descends while any member still wants the subtree;
// pruning here would hide files a member could match deeper down.
func (s *andSelector) TraverseDescendants(file *FileInfo) bool {
	return slices.ContainsFunc(s.selectors, func(sel FileSelector) bool {
		return sel.TraverseDescendants(file)
	})
}

type orSelector struct {
	selectors []FileSelector
}

// Or accepts a file when any selector does.
func Or(selectors ...FileSelector) FileSelector { return &orSelector{selectors: selectors} }

func (s *orSelector) Match(file *FileInfo) bool {
	return slices.ContainsFunc(s.selectors, func(sel FileSelector) bool {
		return sel.Match(file)
	})
}

func (s *orSelector) TraverseDescendants(file *FileInfo) bool {
	return slices.ContainsFunc(s.selectors, func(sel FileSelector) bool {
		return sel.TraverseDescendants(file)
	})
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match. Traversal is not inverted; pruning
// the complement would skip files the inverted match accepts.
func Not(selector FileSelector) FileSelector { return &notSelector{selector: selector} }

func (s *notSelector) Match(file *FileInfo) bool { return !s.selector.Match(file) }

func (s *notSelector) TraverseDescendants(*FileInfo) bool { return true }

type funcSelector struct {
	match    func(*FileInfo) bool
	traverse func(*FileInfo) bool
}

// FuncSelector builds a selector from a match function, the escape
// hatch for filtering logic the built-ins do not cover. Traversal is
// unrestricted.
func FuncSelector(match func(*FileInfo) bool) FileSelector {
	return &funcSelector{
		match:    match,
		traverse: func(*FileInfo) bool { return true },
	}
}

// FuncSelectorFull builds a selector from separate match and traverse
// functions.
func FuncSelectorFull(match, traverse func(*FileInfo) bool) FileSelector {
	return &funcSelector{match: match, traverse: traverse}
}

func (s *funcSelector) Match(file *FileInfo) bool               { return s.match(file) }
func (s *funcSelector) TraverseDescendants(file *FileInfo) bool { return s.traverse(file) }

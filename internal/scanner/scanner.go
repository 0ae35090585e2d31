package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/store"
)

// Scanner walks one workspace root.
type Scanner struct {
	root string
}

// New creates a Scanner for root, which must be an existing directory.
func New(root string) (*Scanner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	return &Scanner{root: filepath.Clean(absRoot)}, nil
}

// Root returns the absolute workspace root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan streams the files accepted by opts.Filter. The channel is closed
// when the walk completes; a walk-level failure is sent as the last result.
// Unreadable entries are skipped.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) <-chan ScanResult {
	results := make(chan ScanResult, 64)

	go func() {
		defer close(results)
		s.scan(ctx, opts, results)
	}()

	return results
}

// Collect runs Scan to completion and returns the files in walk order.
func (s *Scanner) Collect(ctx context.Context, opts ScanOptions) ([]store.FileEntity, error) {
	var files []store.FileEntity
	for res := range s.Scan(ctx, opts) {
		if res.Error != nil {
			return files, res.Error
		}
		files = append(files, *res.File)
	}
	if err := ctx.Err(); err != nil {
		return files, err
	}
	return files, nil
}

func (s *Scanner) scan(ctx context.Context, opts ScanOptions, results chan<- ScanResult) {
	scanned := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // Skip entries we can't access
		}

		rel, ok := Rel(s.root, path)
		if !ok {
			return nil
		}

		if d.IsDir() {
			if opts.Filter != nil && opts.Filter.PruneDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if opts.Filter != nil && !opts.Filter.Accept(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err = os.Stat(path); err != nil || info.IsDir() {
				return nil
			}
		}

		entity := NewFileEntity(s.root, path, info)
		select {
		case results <- ScanResult{File: &entity}:
		case <-ctx.Done():
			return ctx.Err()
		}

		scanned++
		if opts.ProgressFunc != nil && opts.ProgressEvery > 0 && scanned%opts.ProgressEvery == 0 {
			opts.ProgressFunc(scanned)
		}
		return nil
	})

	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = rerrors.TransientIOError(s.root, err)
		}
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// Stat derives the FileEntity for a single path without walking the tree.
// Directories and paths outside the root are rejected.
func (s *Scanner) Stat(path string) (store.FileEntity, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, path)
	}
	abs = filepath.Clean(abs)

	if _, ok := Rel(s.root, abs); !ok {
		return store.FileEntity{}, rerrors.New(rerrors.ErrCodeInvalidPath, "path outside workspace", nil).
			WithDetail("path", abs)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return store.FileEntity{}, rerrors.New(rerrors.ErrCodeFileNotFound, "file not found", err).
				WithDetail("path", abs)
		}
		return store.FileEntity{}, rerrors.TransientIOError(abs, err)
	}
	if info.IsDir() {
		return store.FileEntity{}, rerrors.New(rerrors.ErrCodeInvalidPath, "path is a directory", nil).
			WithDetail("path", abs)
	}

	return NewFileEntity(s.root, abs, info), nil
}

// NewFileEntity builds the entity for abs under root from its FileInfo.
// RelativePath and Folder use OS separators; Folder is "" at the root.
func NewFileEntity(root, abs string, info fs.FileInfo) store.FileEntity {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	folder := filepath.Dir(rel)
	if folder == "." {
		folder = ""
	}
	name := filepath.Base(abs)

	return store.FileEntity{
		Name:         name,
		FullPath:     abs,
		RelativePath: rel,
		Extension:    Ext(name),
		Folder:       folder,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}
}

// Ext returns the extension of a file name including the dot. A leading
// dot does not start an extension: Ext(".gitignore") is "".
func Ext(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	if i := strings.LastIndexByte(trimmed, '.'); i >= 0 {
		return trimmed[i:]
	}
	return ""
}

package arcstream

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// errStopWalk aborts a traversal from inside its callback.
var errStopWalk = errors.New("arcstream: stop walk")

// AppendDir recursively adds the contents of dir: files, subdirectories,
// and symlinks (preserved, not followed). The traversal runs in the
// background; each matched entry pauses the walk until the encoder has
// consumed it. Finalize waits for the traversal to end.
func (p *Pipeline) AppendDir(dir string, opts ...DirOption) error {
	if dir == "" {
		return p.fail(ErrPathRequired)
	}
	if err := p.appendable(); err != nil {
		return p.fail(err)
	}
	var cfg walkConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	p.pending.Add(1)
	go p.walkDir(dir, cfg)
	return nil
}

// AppendGlob adds every match of a doublestar pattern, evaluated under
// the configured root (default "."). Matches are submitted with the same
// one-in-flight backpressure as AppendDir.
func (p *Pipeline) AppendGlob(pattern string, opts ...GlobOption) error {
	if pattern == "" {
		return p.fail(ErrPathRequired)
	}
	if err := p.appendable(); err != nil {
		return p.fail(err)
	}
	cfg := walkConfig{root: "."}
	for _, opt := range opts {
		opt(&cfg)
	}
	p.pending.Add(1)
	go p.walkGlob(pattern, cfg)
	return nil
}

func (p *Pipeline) walkDir(dir string, cfg walkConfig) {
	defer p.traversalDone()

	root, err := os.OpenRoot(dir)
	if err != nil {
		p.emitError(fmt.Errorf("open dir %s: %w", dir, err))
		return
	}
	defer root.Close()

	err = fs.WalkDir(root.FS(), ".", func(rel string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p.aborted() {
			return errStopWalk
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			p.cfg.logger.Warn("stat failed, entry skipped", "path", rel, "error", err)
			return nil
		}
		fsPath := filepath.FromSlash(rel)
		return p.submitMatch(rel, info, cfg,
			func() (io.ReadCloser, error) { return root.Open(fsPath) },
			func() (string, error) {
				target, err := root.Readlink(fsPath)
				if err != nil {
					return "", err
				}
				return relativeLink(filepath.Join(dir, filepath.Dir(fsPath)), target), nil
			},
			filepath.Join(dir, fsPath),
		)
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		p.emitError(fmt.Errorf("walk %s: %w", dir, err))
	}
}

func (p *Pipeline) walkGlob(pattern string, cfg walkConfig) {
	defer p.traversalDone()

	fsys := os.DirFS(cfg.root)
	err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
		if p.aborted() {
			return errStopWalk
		}
		info, err := d.Info()
		if err != nil {
			p.cfg.logger.Warn("stat failed, entry skipped", "path", rel, "error", err)
			return nil
		}
		osPath := filepath.Join(cfg.root, filepath.FromSlash(rel))
		return p.submitMatch(rel, info, cfg,
			func() (io.ReadCloser, error) { return os.Open(osPath) },
			func() (string, error) { return readLink(osPath) },
			osPath,
		)
	}, doublestar.WithNoFollow())
	if err != nil && !errors.Is(err, errStopWalk) {
		p.emitError(fmt.Errorf("glob %s: %w", pattern, err))
	}
}

// submitMatch builds an entry for one traversal match, applies the
// caller's transform, and queues it, blocking until the entry has been
// consumed. At most one match per traversal is in flight at any instant.
func (p *Pipeline) submitMatch(rel string, info fs.FileInfo, cfg walkConfig, open func() (io.ReadCloser, error), readlink func() (string, error), sourcePath string) error {
	e := Entry{
		Name:    rel,
		Prefix:  cfg.prefix,
		Mode:    cfg.mode,
		ModTime: cfg.modTime,
	}
	if cfg.entryFn != nil && !cfg.entryFn(&e) {
		return nil
	}

	typ, linkname, err := p.resolveKind(info, readlink)
	if err != nil {
		p.emitError(fmt.Errorf("%w: %s", err, rel))
		return nil
	}

	hdr := normalize(e, typ, info, linkname, sourcePath, time.Now())
	if hdr.Name == "" {
		return nil
	}

	var src source
	if typ == TypeFile {
		src = openSource(open)
	} else {
		src = bufferSource(nil)
	}

	t := &task{hdr: hdr, src: src, done: make(chan struct{})}
	p.cnt.entriesTotal.Add(1)
	if hdr.Size > 0 {
		p.cnt.bytesTotal.Add(uint64(hdr.Size))
	}
	if !p.appendQ.push(t) {
		p.cnt.entriesTotal.Add(-1)
		return errStopWalk
	}
	<-t.done
	if p.aborted() {
		return errStopWalk
	}
	return nil
}

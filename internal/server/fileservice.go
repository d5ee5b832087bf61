package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/binserve/internal/content"
	"github.com/conneroisu/binserve/internal/logging"
	"github.com/conneroisu/binserve/internal/pages"
)

// FileService serves files from disk. It is the disk-serving collaborator
// of the dispatcher and also backs the static directory mount.
type FileService struct {
	root           string
	prefix         string
	followSymlinks bool
	listing        bool
	notFound       http.Handler
	logger         logging.Logger
}

// FileServiceOptions configures a FileService.
type FileServiceOptions struct {
	// Root is the directory mounted under Prefix. Both may be empty when
	// the service is only used through ServeFile.
	Root           string
	Prefix         string
	FollowSymlinks bool
	Listing        bool
	// NotFound answers requests for missing or refused files.
	NotFound http.Handler
	Logger   logging.Logger
}

// NewFileService creates a FileService.
func NewFileService(opts FileServiceOptions) *FileService {
	if opts.NotFound == nil {
		opts.NotFound = http.NotFoundHandler()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &FileService{
		root:           opts.Root,
		prefix:         strings.TrimSuffix(opts.Prefix, "/"),
		followSymlinks: opts.FollowSymlinks,
		listing:        opts.Listing,
		notFound:       opts.NotFound,
		logger:         opts.Logger.WithComponent("files"),
	}
}

// ServeFile streams the file at name with its own validators and range
// support.
func (fs *FileService) ServeFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		fs.logger.Warn(r.Context(), err, "cannot open file", "path", name)
		fs.notFound.ServeHTTP(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		fs.notFound.ServeHTTP(w, r)
		return
	}

	h := w.Header()
	h.Set("ETag", content.ETagFor(info))
	h.Set("Content-Type", content.MIMEFor(name))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// ServeHTTP serves the mounted directory.
func (fs *FileService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, fs.prefix)
	// Cleaning a rooted path removes every "..".
	rel = path.Clean("/" + rel)
	name := filepath.Join(fs.root, filepath.FromSlash(rel))

	link, err := os.Lstat(name)
	if err != nil {
		fs.notFound.ServeHTTP(w, r)
		return
	}
	if link.Mode()&os.ModeSymlink != 0 && !fs.followSymlinks {
		fs.logger.Debug(r.Context(), "refusing symlink", "path", name)
		fs.notFound.ServeHTTP(w, r)
		return
	}

	info, err := os.Stat(name)
	if err != nil {
		fs.notFound.ServeHTTP(w, r)
		return
	}

	if info.IsDir() {
		if !fs.listing {
			fs.notFound.ServeHTTP(w, r)
			return
		}
		fs.serveListing(w, r, name, fs.prefix+strings.TrimSuffix(rel, "/")+"/")
		return
	}

	fs.ServeFile(w, r, name)
}

func (fs *FileService) serveListing(w http.ResponseWriter, r *http.Request, dir, urlPath string) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		fs.logger.Warn(r.Context(), err, "cannot list directory", "path", dir)
		fs.notFound.ServeHTTP(w, r)
		return
	}

	entries := make([]pages.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.Type()&os.ModeSymlink != 0 && !fs.followSymlinks {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, pages.Entry{
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})

	w.Header().Set("Content-Type", content.HTMLMIME)
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := pages.Listing(urlPath, entries).Render(r.Context(), w); err != nil {
		fs.logger.Error(r.Context(), err, "rendering directory listing", "path", dir)
	}
}

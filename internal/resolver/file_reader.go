package resolver

import (
	"io"
	"io/fs"

	"github.com/txtasm/preproc/internal/afs"
)

// FileReader reads local-path references off an afs.Filesystem, rooted
// at Dir (empty means the filesystem's own root).
type FileReader struct {
	FS  afs.Filesystem
	Dir string
}

func NewFileReader(fls afs.Filesystem, dir string) *FileReader {
	return &FileReader{FS: fls, Dir: dir}
}

func (r *FileReader) Read(reference string) ([]byte, error) {
	path := reference
	if r.Dir != "" {
		path = r.FS.Join(r.Dir, reference)
	}

	info, err := r.FS.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrInvalid}
	}

	f, err := r.FS.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

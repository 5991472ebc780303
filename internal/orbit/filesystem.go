package orbit

// FilesystemManager abstracts the local filesystem the file publisher reads
// from, so publishing can be tested without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// A path that does not exist yields an error wrapping ErrFileNotFound.
	Resolve(rawPath string) (*Path, error)

	// Size returns the size in bytes of a file, or the total size of the
	// regular files below a directory.
	Size(path *Path) (int64, error)
}

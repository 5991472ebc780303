package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"orbit-go/internal/orbit"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile

	// ResolveErr and SizeErr, when set, are returned by every call.
	ResolveErr error
	SizeErr    error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{
		Permissions: 0755 | fs.ModeDir,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*orbit.Path, error) {
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	file, ok := m.files[absPath]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", orbit.ErrFileNotFound, absPath)
	}

	info := &mockFileInfo{
		name:    filepath.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
	return orbit.NewPath(absPath, file.IsDirectory, info), nil
}

// Size returns the content length of a file, or the summed length of every
// file below a directory.
func (m *MockFilesystemManager) Size(path *orbit.Path) (int64, error) {
	if m.SizeErr != nil {
		return 0, m.SizeErr
	}
	if !path.IsDir() {
		return path.Info().Size(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := path.String() + string(filepath.Separator)
	var total int64
	for p, f := range m.files {
		if !f.IsDirectory && strings.HasPrefix(p, prefix) {
			total += int64(len(f.Content))
		}
	}
	return total, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ orbit.FilesystemManager = (*MockFilesystemManager)(nil)

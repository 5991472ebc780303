package orbit

import (
	"context"
	"errors"
	"path/filepath"
)

// RootHash picks the hash that identifies an upload. The storage network
// appends a wrapping node with an empty name after a directory upload; that
// node is skipped and the one before it is the root. Otherwise the last node
// is the root.
func RootHash(nodes []AddedNode) (string, error) {
	if len(nodes) == 0 {
		return "", ErrEmptyUpload
	}
	last := nodes[len(nodes)-1]
	if last.Name != "" {
		return last.Hash, nil
	}
	if len(nodes) < 2 {
		return "", ErrEmptyUpload
	}
	return nodes[len(nodes)-2].Hash, nil
}

// AddFile uploads a local file or directory to the storage network and
// appends a file or directory post referencing it to a channel. The stages
// run in order and the first failure aborts the rest.
func (c *Coordinator) AddFile(ctx context.Context, channelName, filePath string) error {
	op := "add file #" + channelName

	session, err := c.currentSession()
	if err != nil {
		return c.reporter.Report(newError(FileError, op, err))
	}
	log, ok := c.channels.Log(channelName)
	if !ok {
		return c.reporter.Report(newError(FileError, op, ErrChannelNotJoined))
	}

	c.logger.Info("adding file", "path", filePath)

	path, err := c.fsmgr.Resolve(filePath)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return c.reporter.Report(newErrorf(FileError, op, "%w at '%s'", ErrFileNotFound, filePath))
		}
		return c.reporter.Report(newErrorf(FileError, op, "resolving '%s': %w", filePath, err))
	}

	isDir := path.IsDir()

	nodes, err := c.storage.Add(ctx, path.String(), AddOptions{Recursive: true})
	if err != nil {
		return c.reporter.Report(newErrorf(FileError, op, "uploading '%s': %w", filePath, err))
	}
	hash, err := RootHash(nodes)
	if err != nil {
		return c.reporter.Report(newErrorf(FileError, op, "uploading '%s': %w", filePath, err))
	}

	size, err := c.fsmgr.Size(path)
	if err != nil {
		return c.reporter.Report(newErrorf(FileError, op, "sizing '%s': %w", filePath, err))
	}

	c.logger.Info("added local file", "path", filePath, "hash", hash, "size", size)

	typ := PostFile
	if isDir {
		typ = PostDirectory
	}
	post, err := c.posts.Create(ctx, c.storage, typ, FileEntry{
		Name: filepath.Base(path.String()),
		Hash: hash,
		Size: size,
		From: session.User().ID,
	})
	if err != nil {
		return c.reporter.Report(newErrorf(FileError, op, "creating post: %w", err))
	}

	if _, err := log.Add(ctx, post.Hash); err != nil {
		return c.reporter.Report(newErrorf(FileError, op, "appending to log: %w", err))
	}
	return nil
}

// GetDirectoryListing returns the links of the directory stored at hash.
func (c *Coordinator) GetDirectoryListing(ctx context.Context, hash string) ([]Link, error) {
	op := "ls " + hash

	listing, err := c.storage.Ls(ctx, hash)
	if err != nil {
		return nil, c.reporter.Report(newErrorf(DirectoryLookupError, op, "listing: %w", err))
	}
	if listing == nil || len(listing.Objects) == 0 {
		return nil, c.reporter.Report(newErrorf(DirectoryLookupError, op, "no objects returned"))
	}
	return listing.Objects[0].Links, nil
}

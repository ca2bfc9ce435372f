package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LinkFile exposes source at dest, replacing whatever is already there.
// It prefers a symbolic link and falls back to a full copy when the
// platform or privilege level refuses symlinks. The probe happens at
// runtime on every call since the answer can change between invocations.
func LinkFile(fsys FS, source, dest string) error {
	if _, err := fsys.Stat(source); err != nil {
		return fmt.Errorf("link source not accessible: %w", err)
	}

	if err := removeExisting(fsys, dest); err != nil {
		return err
	}

	if err := fsys.Symlink(source, dest); err == nil {
		return nil
	}

	return copyFile(fsys, source, dest)
}

// LinkTree exposes the source directory at dest wholesale, replacing any
// prior content entirely. Symlink first, recursive copy as fallback.
func LinkTree(fsys FS, source, dest string) error {
	info, err := fsys.Stat(source)
	if err != nil {
		return fmt.Errorf("link source not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("link source is not a directory: %s", source)
	}

	if err := removeExisting(fsys, dest); err != nil {
		return err
	}

	if err := fsys.Symlink(source, dest); err == nil {
		return nil
	}

	return CopyTree(fsys, source, dest)
}

// CopyTree recursively copies the source directory to dest.
func CopyTree(fsys FS, source, dest string) error {
	info, err := fsys.Stat(source)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", source, err)
	}

	if err := fsys.MkdirAll(dest, info.Mode().Perm()|0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dest, err)
	}

	entries, err := fsys.ReadDir(source)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", source, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(source, entry.Name())
		dstPath := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if err := CopyTree(fsys, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(fsys, srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(fsys FS, source, dest string) error {
	data, err := fsys.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	mode := fs.FileMode(0644)
	if info, err := fsys.Stat(source); err == nil {
		mode = info.Mode().Perm()
	}

	if err := fsys.WriteFile(dest, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return nil
}

func removeExisting(fsys FS, path string) error {
	info, err := fsys.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	if info.IsDir() && info.Mode()&os.ModeSymlink == 0 {
		if err := fsys.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove existing directory %s: %w", path, err)
		}
		return nil
	}

	if err := fsys.Remove(path); err != nil {
		return fmt.Errorf("failed to remove existing entry %s: %w", path, err)
	}
	return nil
}

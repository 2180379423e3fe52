package media

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Store saves, lists and removes media assets by path relative to the
// storage root
type Store interface {
	// Save writes data as <asset dir>/filename and returns the relative path
	Save(assetType AssetType, filename string, data io.Reader) (string, error)
	// List returns the relative paths of every file stored for an asset type
	List(assetType AssetType) ([]string, error)
	// Delete removes an asset; a missing file is not an error
	Delete(relativePath string) error
	// GetFullPath returns the absolute filesystem path for a relative asset path
	GetFullPath(relativePath string) (string, error)
}

// tempPrefix marks files that are still being written; List skips them
const tempPrefix = ".tmp-"

// LocalStorage implements Store on the local filesystem
type LocalStorage struct {
	root string               // absolute MEDIA_STORAGE_PATH
	dirs map[AssetType]string // absolute directory per asset type
}

// NewLocalStorage creates the root and every configured asset directory
func NewLocalStorage(basePath string, subDirs map[AssetType]string) (*LocalStorage, error) {
	root, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	ls := &LocalStorage{root: root, dirs: make(map[AssetType]string, len(subDirs))}
	for assetType, subDir := range subDirs {
		dir := filepath.Join(root, subDir)
		if dir == root || !ls.within(dir) {
			return nil, fmt.Errorf("invalid subdirectory configuration: '%s' resolves outside base path '%s'", subDir, root)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
		}
		ls.dirs[assetType] = dir
	}

	log.Printf("media.store: Initialized LocalStorage at %s", root)
	return ls, nil
}

func (ls *LocalStorage) within(absPath string) bool {
	return absPath == ls.root || strings.HasPrefix(absPath, ls.root+string(filepath.Separator))
}

func (ls *LocalStorage) relative(absPath string) (string, error) {
	rel, err := filepath.Rel(ls.root, absPath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

func (ls *LocalStorage) dirFor(assetType AssetType) (string, error) {
	dir, ok := ls.dirs[assetType]
	if !ok {
		return "", fmt.Errorf("asset type '%s' is not configured", assetType)
	}
	return dir, nil
}

// Save streams data into a temp file next to the target and renames it into
// place, so readers never observe a partial asset.
func (ls *LocalStorage) Save(assetType AssetType, filename string, data io.Reader) (string, error) {
	dir, err := ls.dirFor(assetType)
	if err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, tempPrefix) {
		return "", fmt.Errorf("invalid filename '%s' for LocalStorage.Save", filename)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in '%s': %w", dir, err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, data)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return "", fmt.Errorf("failed to write '%s': %w", filename, copyErr)
	}

	target := filepath.Join(dir, filename)
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move '%s' into place: %w", filename, err)
	}

	log.Printf("media.store: Saved asset to %s", target)
	return ls.relative(target)
}

// List returns relative paths for the finished regular files of an asset type
func (ls *LocalStorage) List(assetType AssetType) ([]string, error) {
	dir, err := ls.dirFor(assetType)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list '%s': %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		rel, err := ls.relative(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		paths = append(paths, rel)
	}
	return paths, nil
}

// Delete removes an asset file
func (ls *LocalStorage) Delete(relativePath string) error {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete asset '%s': %w", relativePath, err)
	}
	log.Printf("media.store: Deleted asset %s", fullPath)
	return nil
}

// GetFullPath resolves relativePath under the root, refusing anything that
// escapes it
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	full := filepath.Join(ls.root, filepath.Clean(filepath.FromSlash(relativePath)))
	if !ls.within(full) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return full, nil
}

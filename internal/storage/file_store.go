package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go-toolbox-factory/internal/model"
	"go-toolbox-factory/pkg/fsutils"
)

const (
	xmlExt      = ".xml"
	manifestExt = ".json"
)

// FileStore implements the ExportStore interface on the local filesystem.
// Every export is a <key>.xml toolbox file plus a <key>.json manifest, where
// the key is the slug of the export name.
type FileStore struct {
	// BasePath is the directory where exports are stored.
	BasePath string
	logger   *slog.Logger
}

// NewFileStore creates a new FileStore instance.
// It ensures the base storage directory exists.
func NewFileStore(basePath string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := fsutils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	return &FileStore{BasePath: basePath, logger: logger}, nil
}

// GetBasePath returns the base path of the store.
func (fs *FileStore) GetBasePath() string {
	return fs.BasePath
}

func (fs *FileStore) key(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("export name cannot be empty")
	}
	return fsutils.Slug(name), nil
}

// SaveExport persists the toolbox XML and its manifest.
func (fs *FileStore) SaveExport(info *model.ExportInfo, xml string) error {
	if info == nil {
		return fmt.Errorf("export info cannot be nil")
	}
	key, err := fs.key(info.Name)
	if err != nil {
		return err
	}
	info.File = key + xmlExt
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	xmlPath := filepath.Join(fs.BasePath, info.File)
	if err := fsutils.WriteToFile(xmlPath, []byte(xml)); err != nil {
		return fmt.Errorf("failed to write export file %s: %w", xmlPath, err)
	}

	// Use MarshalIndent for readable manifests
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest for %s: %w", info.Name, err)
	}
	manifestPath := filepath.Join(fs.BasePath, key+manifestExt)
	if err := fsutils.WriteToFile(manifestPath, data); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", manifestPath, err)
	}
	fs.logger.Debug("Saved export", "name", info.Name, "file", xmlPath)
	return nil
}

// LoadExport reads the toolbox XML saved under name.
func (fs *FileStore) LoadExport(name string) (string, error) {
	key, err := fs.key(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(fs.BasePath, key+xmlExt)
	data, err := fsutils.ReadFile(path)
	if err != nil {
		// Handle file not found specifically
		if os.IsNotExist(err) {
			return "", fmt.Errorf("export %s not found: %w", name, err)
		}
		return "", fmt.Errorf("failed to read export file %s: %w", path, err)
	}
	return string(data), nil
}

// LoadInfo reads the manifest saved under name.
func (fs *FileStore) LoadInfo(name string) (*model.ExportInfo, error) {
	key, err := fs.key(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(fs.BasePath, key+manifestExt)
	data, err := fsutils.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("export %s not found: %w", name, err)
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var info model.ExportInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest %s: %w", path, err)
	}
	return &info, nil
}

// GetAllExportNames scans BasePath for manifests and returns their keys.
func (fs *FileStore) GetAllExportNames() ([]string, error) {
	files, err := os.ReadDir(fs.BasePath)
	if err != nil {
		// If the base path itself doesn't exist yet, return empty list, no error
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read storage directory %s: %w", fs.BasePath, err)
	}

	var keys []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), manifestExt) {
			keys = append(keys, strings.TrimSuffix(file.Name(), manifestExt))
		}
	}
	return keys, nil
}

// DeleteExport removes an export's XML and manifest.
func (fs *FileStore) DeleteExport(name string) error {
	key, err := fs.key(name)
	if err != nil {
		return err
	}
	for _, ext := range []string{xmlExt, manifestExt} {
		path := filepath.Join(fs.BasePath, key+ext)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	fs.logger.Debug("Deleted export", "name", name)
	return nil
}

// ReadAll loads every manifest, newest first.
func (fs *FileStore) ReadAll() ([]*model.ExportInfo, error) {
	keys, err := fs.GetAllExportNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	infos := make([]*model.ExportInfo, 0, len(keys))
	for _, key := range keys {
		info, err := fs.LoadInfo(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load export %s during ReadAll: %w", key, err)
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

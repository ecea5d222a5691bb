package storage

import "go-toolbox-factory/internal/model"

// ExportStore defines the operations needed for persisting exported toolboxes.
// This allows swapping implementations (e.g., files vs. a database) later.
type ExportStore interface {
	// SaveExport writes the toolbox XML and its manifest. The manifest's File
	// and CreatedAt fields are filled in.
	SaveExport(info *model.ExportInfo, xml string) error

	// LoadExport returns the toolbox XML saved under name.
	LoadExport(name string) (string, error)

	// LoadInfo returns the manifest saved under name.
	LoadInfo(name string) (*model.ExportInfo, error)

	// GetAllExportNames returns the keys of all saved exports.
	GetAllExportNames() ([]string, error)

	// DeleteExport removes an export. Deleting a missing export is not an error.
	DeleteExport(name string) error

	// ReadAll retrieves the manifests of all exports, newest first.
	ReadAll() ([]*model.ExportInfo, error)

	// GetBasePath returns the storage base path.
	GetBasePath() string
}

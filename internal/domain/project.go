package domain

import "strings"

// Folder is a configured file-storage location of a project. Paths are
// relative to the process directory and may contain (processtitle).
type Folder struct {
	// Path is the folder path template, e.g. "images/(processtitle)_media".
	Path string `yaml:"path" json:"path"`

	// MimeType is the MIME type of the files kept in the folder.
	MimeType string `yaml:"mime_type" json:"mime_type"`

	// ImageScale makes the folder a derivative target scaled by this factor.
	ImageScale float64 `yaml:"image_scale,omitempty" json:"image_scale,omitempty"`

	// ImageWidth makes the folder a derivative target of this pixel width.
	// It takes precedence over ImageScale.
	ImageWidth int `yaml:"image_width,omitempty" json:"image_width,omitempty"`
}

// IsDerivative reports whether images are generated into this folder.
func (f Folder) IsDerivative() bool {
	return f.ImageScale > 0 || f.ImageWidth > 0
}

// Extension returns the file extension for the folder's MIME type, including the dot.
func (f Folder) Extension() string {
	switch strings.ToLower(f.MimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/tiff":
		return ".tif"
	case "image/png":
		return ".png"
	}
	return ""
}

// Project groups processes and configures their folders.
type Project struct {
	ID    int    `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`

	// Folders are created by createFolders and used as derivative targets.
	Folders []Folder `yaml:"folders" json:"folders"`

	// GeneratorSource is the path of the folder derivative images are generated from.
	// The source folder need not be listed in Folders.
	GeneratorSource *Folder `yaml:"generator_source,omitempty" json:"generator_source,omitempty"`
}

// FolderByPath returns the configured folder with the given path template, or nil.
func (p *Project) FolderByPath(path string) *Folder {
	for i := range p.Folders {
		if p.Folders[i].Path == path {
			return &p.Folders[i]
		}
	}
	return nil
}

// Role is a named permission group that can be assigned to tasks.
type Role struct {
	ID    int    `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

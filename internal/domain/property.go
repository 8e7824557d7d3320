package domain

// TaskProperty names one of the boolean task flags that setTaskProperty can change.
type TaskProperty string

// Task properties as spelled in scripts.
const (
	PropertyMetadata    TaskProperty = "metadata"
	PropertyReadImages  TaskProperty = "readimages"
	PropertyWriteImages TaskProperty = "writeimages"
	PropertyValidate    TaskProperty = "validate"
	PropertyExportDMS   TaskProperty = "exportdms"
	PropertyBatch       TaskProperty = "batch"
	PropertyAutomatic   TaskProperty = "automatic"
)

// TaskProperties are the boolean type flags of a task. All default to false.
type TaskProperties struct {
	TypeMetadata    bool `json:"type_metadata"`
	TypeImagesRead  bool `json:"type_images_read"`
	TypeImagesWrite bool `json:"type_images_write"`
	TypeCloseVerify bool `json:"type_close_verify"`
	TypeExportDMS   bool `json:"type_export_dms"`
	BatchStep       bool `json:"batch_step"`
	TypeAutomatic   bool `json:"type_automatic"`
}

// TaskPropertyNames lists the property names in display order.
func TaskPropertyNames() []TaskProperty {
	return []TaskProperty{
		PropertyMetadata, PropertyReadImages, PropertyWriteImages,
		PropertyValidate, PropertyExportDMS, PropertyBatch, PropertyAutomatic,
	}
}

// Set assigns value to the named flag. It reports false for an unknown name.
func (p *TaskProperties) Set(name TaskProperty, value bool) bool {
	switch name {
	case PropertyMetadata:
		p.TypeMetadata = value
	case PropertyReadImages:
		p.TypeImagesRead = value
	case PropertyWriteImages:
		p.TypeImagesWrite = value
	case PropertyValidate:
		p.TypeCloseVerify = value
	case PropertyExportDMS:
		p.TypeExportDMS = value
	case PropertyBatch:
		p.BatchStep = value
	case PropertyAutomatic:
		p.TypeAutomatic = value
	default:
		return false
	}
	return true
}

// Get returns the value of the named flag and whether the name is known.
func (p TaskProperties) Get(name TaskProperty) (bool, bool) {
	switch name {
	case PropertyMetadata:
		return p.TypeMetadata, true
	case PropertyReadImages:
		return p.TypeImagesRead, true
	case PropertyWriteImages:
		return p.TypeImagesWrite, true
	case PropertyValidate:
		return p.TypeCloseVerify, true
	case PropertyExportDMS:
		return p.TypeExportDMS, true
	case PropertyBatch:
		return p.BatchStep, true
	case PropertyAutomatic:
		return p.TypeAutomatic, true
	}
	return false, false
}

package models

// SchemaVersion is one applied migration step; the highest row is the
// current schema version.
type SchemaVersion struct {
	Version int `gorm:"primaryKey;autoIncrement:false"`
}

func (SchemaVersion) TableName() string {
	return "_schema_version"
}

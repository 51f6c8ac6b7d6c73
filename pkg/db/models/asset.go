package models

// Asset is the metadata row of one stored payload. The id doubles as the
// file name in the blob store.
//
// Deleted is the visibility barrier: a row is inserted with Deleted set and
// only flipped once its content sits at the final path.
type Asset struct {
	ID      uint   `gorm:"primaryKey"        json:"id"`
	Name    string `gorm:"type:text;not null" json:"name"`
	Deleted bool   `gorm:"not null"          json:"-"`
}

func (Asset) TableName() string {
	return "asset"
}

// AssetFilter narrows asset listings. The zero value matches every visible asset.
type AssetFilter struct {
	// TagIDs keeps only assets carrying all of the listed tags.
	TagIDs []uint
}

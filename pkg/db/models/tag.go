package models

// Tag represents an immutable key-value label, optionally scoped to a linked asset
type Tag struct {
	ID            uint   `gorm:"primaryKey"         json:"tag_id"`
	Key           string `gorm:"type:text;not null" json:"key"`
	Value         string `gorm:"type:text;not null" json:"value"`
	LinkedAssetID *uint  `json:"linked_asset_id"`
}

func (Tag) TableName() string {
	return "tag"
}

// AssetTag records that a tag currently applies to an asset
type AssetTag struct {
	AssetID uint `gorm:"primaryKey;autoIncrement:false" json:"asset_id"`
	TagID   uint `gorm:"primaryKey;autoIncrement:false" json:"tag_id"`
}

func (AssetTag) TableName() string {
	return "asset_tag"
}

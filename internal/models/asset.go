package models

import "time"

type AssetSource string

const (
	AssetSourceGenerated AssetSource = "generated"
	AssetSourceUpload    AssetSource = "upload"
	AssetSourceThumbnail AssetSource = "thumbnail"
)

type AssetStatus string

const (
	AssetStatusActive  AssetStatus = "active"
	AssetStatusDeleted AssetStatus = "deleted"
)

// Asset is an object this service stored in the object store.
type Asset struct {
	ID        string
	UserID    string
	PostID    string
	Bucket    string
	ObjectKey string
	URL       string
	MIME      string
	SizeBytes int64
	Source    AssetSource
	Status    AssetStatus
	Checksum  []byte
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

package enum

// StorageBackendKind selects the storage provider an address offloads
// attachments to. Stored in the addresses table.
type StorageBackendKind string

const (
	StorageBackendDropbox StorageBackendKind = "dropbox"
	StorageBackendS3      StorageBackendKind = "s3"
	StorageBackendR2      StorageBackendKind = "r2"
	StorageBackendLocal   StorageBackendKind = "local"
)

func (k StorageBackendKind) String() string {
	return string(k)
}

func DecodeStorageBackendKind(s string) StorageBackendKind {
	switch s {
	case "dropbox":
		return StorageBackendDropbox
	case "s3":
		return StorageBackendS3
	case "r2":
		return StorageBackendR2
	case "local":
		return StorageBackendLocal
	default:
		return StorageBackendKind(s)
	}
}

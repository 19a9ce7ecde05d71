// Package adaptor defines the interface to the external SSH adaptor layer.
// The credential resolution engine produces the inputs for a handle; the
// remote I/O behind the handle is entirely outside this module.
package adaptor

import (
	"context"
	"time"
)

// Factory turns a resolved identity into a live connection handle.
type Factory interface {
	// ComputeSSHAdaptor opens a handle to a compute resource using the
	// resolved login name and credential token.
	ComputeSSHAdaptor(ctx context.Context, gatewayID, computeResourceID, token, userID, loginUserName string) (Handle, error)

	// StorageSSHAdaptor opens a handle to a storage resource using the
	// resolved login name and credential token.
	StorageSSHAdaptor(ctx context.Context, gatewayID, storageResourceID, token, userID, loginUserName string) (Handle, error)
}

// Handle is an open connection to a remote resource. It is opaque to the
// resolution engine; callers use it and close it.
type Handle interface {
	// StorageVolumeInfo reports capacity and usage for the volume holding path.
	StorageVolumeInfo(ctx context.Context, path string) (*VolumeInfo, error)

	// StorageDirectoryInfo lists the directory at path.
	StorageDirectoryInfo(ctx context.Context, path string) (*DirectoryInfo, error)

	// Close releases the connection.
	Close() error
}

// VolumeInfo reports capacity and usage of a remote volume.
type VolumeInfo struct {
	Path       string `json:"path"`
	TotalBytes int64  `json:"total_bytes"`
	UsedBytes  int64  `json:"used_bytes"`
	FreeBytes  int64  `json:"free_bytes"`
}

// DirectoryInfo lists the contents of a remote directory.
type DirectoryInfo struct {
	Path    string     `json:"path"`
	Entries []FileInfo `json:"entries"`
}

// FileInfo describes one remote file or directory.
type FileInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	IsDir      bool      `json:"is_dir"`
	ModifiedAt time.Time `json:"modified_at"`
}

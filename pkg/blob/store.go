// Package blob defines the contract over durable object storage. Brains keep
// two prefixes there: one holding the saved index directory plus the ledger
// mirror, and one holding the raw uploaded documents. Implementations live in
// subpackages (s3 for production, local for dev and tests) and are selected
// by configuration.
package blob

import "context"

// Store is a flat key/value object store with prefix operations. Keys use "/"
// as the path separator regardless of the backing driver.
type Store interface {
	// Upload stores the contents of the local file at srcPath under key.
	Upload(ctx context.Context, key, srcPath string) error

	// Download writes the object at key to the local file at destPath,
	// creating parent directories as needed. Returns an error wrapping
	// ErrObjectNotFound when the key does not exist.
	Download(ctx context.Context, key, destPath string) error

	// UploadPrefix uploads every file under the local directory srcDir,
	// keyed as prefix + "/" + the file's path relative to srcDir.
	UploadPrefix(ctx context.Context, prefix, srcDir string) error

	// DownloadPrefix mirrors every object under prefix into destDir.
	// Returns an error wrapping ErrObjectNotFound when the prefix holds
	// no objects.
	DownloadPrefix(ctx context.Context, prefix, destDir string) error

	// Exists reports whether at least one object lives under prefix.
	Exists(ctx context.Context, prefix string) (bool, error)

	// Delete removes the object at key. Removing an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// CopyPrefix copies every object under srcPrefix to the same relative
	// key under destPrefix. Source objects are left in place.
	CopyPrefix(ctx context.Context, srcPrefix, destPrefix string) error

	// Close releases resources held by the store.
	Close() error
}

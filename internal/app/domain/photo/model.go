// Package photo defines stored photo metadata. Image bytes live on disk
// under the file store; the core only tracks filename and subfolder.
package photo

import "time"

// Photo is a stored image. (Filename, Subfolder) pairs are unique.
type Photo struct {
	ID        string
	Filename  string
	Subfolder string
	CreatedAt time.Time
}

package model

import "time"

// Document is one uploaded statement. Seq is the monotonically increasing
// upload order; when two documents contain the same transaction, the copy in
// the higher-Seq document is the redundant one.
type Document struct {
	UploadedAt time.Time
	ID         string
	Filename   string
	Seq        int64
}

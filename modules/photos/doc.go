// Package photos is the photo module: rows in PostgreSQL, blobs in
// object storage. The row is the access authority; the blob key mirrors
// the owning tenant for auditability.
package photos

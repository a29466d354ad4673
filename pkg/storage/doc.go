// Package storage is the S3-backed blob store for photo originals.
// Works against AWS S3 and S3-compatible services (MinIO) via a custom
// endpoint. Object keys carry the owning tenant as their first path
// segment; the database row, not the bucket, is the access-control
// authority.
package storage

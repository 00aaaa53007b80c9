// Package upload stores binary parts of action payloads.
//
// The multipart decoder hands each file part to a Store as it streams in and
// immediately claims it back, so actions receive a *File whose Reader
// yields the stored bytes. Claimed files are deleted from the backing store
// when the File is closed.
//
// Three backends are provided:
//
//   - MemoryStore keeps files in process memory (tests, small deployments)
//   - DiskStore writes files under a directory with a sidecar .meta file
//   - S3Store puts files in an S3 bucket (or any S3-compatible endpoint)
//
// Unclaimed files accumulate if a request fails mid-decode; run Janitor to
// sweep them.
package upload

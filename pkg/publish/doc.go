// Package publish delivers the finished archive: as a Telegram document,
// as an object in an S3-compatible bucket, or as a terminal notice when no
// destination is configured. Multi fans out to all of them with retries.
package publish

// Package util provides shared helpers for safe file-path validation and
// log-body truncation used across soapd packages.
//
//   - SafeFilePath / SafeFilePathAllowAbsolute: reject path traversal
//   - TruncateBody: cap bodies before logging
package util

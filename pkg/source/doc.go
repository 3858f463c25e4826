// Package source provides template.SourceReader implementations backed by a
// directory on disk, an fs.FS, an in-memory map or bundle file, an HTTP
// endpoint and Redis. Every reader resolves a name plus optional suffix to
// "<name>.<suffix><extension>" (or the backend's equivalent key) and reports
// absent content as an empty string rather than an error.
package source

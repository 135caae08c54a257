// Package servant implements the two terminal servants of the routing
// tree: File, which serves a directory on disk, and Zip, which serves a
// zip archive decoded into memory once at construction.
//
// Both servants receive the remaining path beyond the mount point and
// return a fully-buffered response. Traversal sequences ("..") are
// stripped before resolution. File refuses hidden files and directories
// without an index.html with 403; Zip resolves directory indexes,
// implicit directories, and single-page-app fragment URLs before giving
// up with 404.
package servant

// Package httpapi serves the knowledge base over a JSON REST API built on
// echo. Every route requires the X-User-ID header; the caller's identity is
// established upstream.
package httpapi

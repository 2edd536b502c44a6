// Package extractors provides implementations of the Extractor interface
// for the document formats a knowledge base accepts. Each extractor knows
// how to turn the bytes of a specific MIME type into plain text.
//
// Extractors are registered with the Registry at startup.
package extractors

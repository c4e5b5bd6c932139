// Package types holds the value objects shared by the repository layers:
// read filters, where expressions, ordering, page requests and JSON column
// helpers. Filters can be built in code or parsed from LoopBack style JSON
// documents.
package types

// Package protocol owns the market sync wire contract.
//
// Ownership boundary:
// - network item record layout and its packed flags field
// - framed batch stream primitives
// - batched zone serialization with resume-index pagination
package protocol

// Package detect classifies raw model output as either a structured tool
// request or a final user-facing answer. Classification is pure and fails
// closed: anything that does not strictly decode as a tool request is
// treated as answer text, verbatim.
package detect

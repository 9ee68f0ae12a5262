// Package sanitizer provides input normalization for listing data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings or empty slices rather than errors.
//
// Normalization runs before validation and storage:
//   - Names: Collapse whitespace, strip control characters, trim
//   - Descriptions: Same as names but line breaks survive
//   - Account ids: Trim and strip control characters, content untouched
//   - Slices: Remove duplicates and empty values after normalization
package sanitizer

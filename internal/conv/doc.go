// Package conv provides checked integer conversions for values read from
// dataset headers (example counts, record offsets, field ids).
package conv

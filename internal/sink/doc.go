// Package sink wraps prediction outputs with stream compression chosen by
// file extension.
package sink

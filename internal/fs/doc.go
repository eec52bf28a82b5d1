// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation over the os package
//   - [FaultyFS]: wrapper that injects read, write, sync and close failures
//
// The local blob store reads dataset artifacts through a [FileSystem] when
// memory mapping is disabled, which lets tests simulate a failing disk:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".data", fs.Fault{FailAfterBytes: -1, FailOnRead: true})
//
// Operations take no context.Context; local syscalls cannot be interrupted.
// Slow backends go through blobstore, which is context aware.
package fs

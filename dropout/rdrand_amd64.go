package dropout

import "golang.org/x/sys/cpu"

var hasRDRAND = cpu.X86.HasRDRAND

// rdrand64 executes RDRAND once. ok is false when the carry flag is clear.
//
//go:noescape
func rdrand64() (v uint64, ok bool)

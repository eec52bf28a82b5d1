//go:build !amd64

package dropout

const hasRDRAND = false

func rdrand64() (uint64, bool) { return 0, false }

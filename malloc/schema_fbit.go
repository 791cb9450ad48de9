//go:build fbit

package malloc

// Defaultpool pool algorithm.
const Defaultpool = "fbit"

//go:build !fbit

package malloc

// Defaultpool pool algorithm, build with `-tags fbit` to default
// to bitmap pools.
const Defaultpool = "flist"

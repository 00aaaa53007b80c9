package protocol

// MaxRowSize bounds a single row accepted by RowReader (16MB).
// Writers are not limited; markup is split into chunks well below this.
const MaxRowSize = 16 * 1024 * 1024

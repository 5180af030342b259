// Package mifare models Mifare Classic cards (keys, block addressing, sector
// trailers, ATR identification) and builds the PC/SC Part 3 reader commands
// that operate them.
//
// Nothing in this package performs I/O: the CommandBuilder returns
// iso7816.CommandAPDU values for the session layer to transmit.
package mifare

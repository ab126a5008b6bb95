// Package nhash implements the CRC-32 name hashing used as the entry key
// throughout the archive formats, and the read-only database that maps
// hashes back to their original strings.
//
// The hash is the canonical IEEE 802.3 CRC-32 (polynomial 0xEDB88320,
// initial value 0xFFFFFFFF, final XOR 0xFFFFFFFF, bytes consumed
// LSB-first). The lowercase variant folds ASCII A-Z to a-z before mixing
// each byte, matching how the game hashes case-insensitive names.
package nhash

import "hash/crc32"

var table = crc32.MakeTable(crc32.IEEE)

// CRC32 returns the case-sensitive hash of s. The empty string hashes
// to 0.
func CRC32(s string) uint32 {
	return Update(0, s)
}

// Update extends crc with the bytes of s. The zero value is the hash of
// the empty string, so chained Update calls over the pieces of a string
// equal one CRC32 call over their concatenation.
func Update(crc uint32, s string) uint32 {
	crc = ^crc
	for i := 0; i < len(s); i++ {
		crc = table[byte(crc)^s[i]] ^ (crc >> 8)
	}
	return ^crc
}

// CRC32Lower returns the lowercase-folded hash of s.
func CRC32Lower(s string) uint32 {
	return UpdateLower(0, s)
}

// UpdateLower extends crc with the bytes of s, folding ASCII upper case
// to lower case byte by byte.
func UpdateLower(crc uint32, s string) uint32 {
	crc = ^crc
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		crc = table[byte(crc)^c] ^ (crc >> 8)
	}
	return ^crc
}

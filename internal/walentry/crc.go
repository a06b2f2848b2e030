package walentry

import "hash/crc32"

func crcSum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func crcValid(data []byte, sum uint32) bool {
	return crcSum(data) == sum
}

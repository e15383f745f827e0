package transponder

// Crc8 generalises the teacher's 16-bit CRC table-generation pattern
// (github.com/bemasher/rtlamr/crc) down to an 8-bit polynomial, the width
// the OpenStint payload trailer needs.
type Crc8Table [256]byte

// Crc8Poly is the CRC-8 polynomial (CRC-8/SMBUS) used to validate the
// OpenStint decoded id bytes against their trailer byte.
const Crc8Poly = 0x07

var crc8Table = newCrc8Table(Crc8Poly)

func newCrc8Table(poly byte) Crc8Table {
	var table Crc8Table
	for i := range table {
		crc := byte(i)
		for b := 0; b < 8; b++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc = crc << 1
			}
		}
		table[i] = crc
	}
	return table
}

// Crc8 computes the CRC-8 checksum of data using the fixed table above.
func Crc8(data []byte) byte {
	var crc byte
	for _, v := range data {
		crc = crc8Table[crc^v]
	}
	return crc
}

// Crc8Validate reports whether data's checksum matches expected.
func Crc8Validate(data []byte, expected byte) bool {
	return Crc8(data) == expected
}

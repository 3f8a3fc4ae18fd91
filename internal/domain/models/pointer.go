package models

// OIDLength is the length of a SHA-256 object identifier in hex characters
const OIDLength = 64

// ValidOID reports whether oid is a well-formed object identifier:
// exactly 64 lowercase hexadecimal characters.
func ValidOID(oid string) bool {
	if len(oid) != OIDLength {
		return false
	}
	for i := 0; i < len(oid); i++ {
		c := oid[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Pointer identifies an LFS object by content digest and size
type Pointer struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// Valid reports whether the pointer carries a well-formed OID and a
// non-negative size.
func (p Pointer) Valid() bool {
	return ValidOID(p.OID) && p.Size >= 0
}

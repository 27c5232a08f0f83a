package wifi

import (
	"fmt"
	"strconv"
	"strings"
)

// MacAddress is a 48-bit hardware address. The zero value is the null address.
type MacAddress uint64

// ParseMacAddress accepts "aa:bb:cc:dd:ee:ff" or "aabbccddeeff".
// Anything else yields the null address.
func ParseMacAddress(s string) MacAddress {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 17:
		for i := 2; i < 17; i += 3 {
			if s[i] != ':' {
				return 0
			}
		}
		s = strings.ReplaceAll(s, ":", "")
	case 12:
	default:
		return 0
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return MacAddress(v)
}

// IsNull reports whether the address is unset.
func (m MacAddress) IsNull() bool {
	return m == 0
}

// String formats the address as upper-case colon separated octets.
func (m MacAddress) String() string {
	if m.IsNull() {
		return ""
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		byte(m>>40), byte(m>>32), byte(m>>24), byte(m>>16), byte(m>>8), byte(m))
}

func (m MacAddress) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MacAddress) UnmarshalText(b []byte) error {
	*m = ParseMacAddress(string(b))
	return nil
}

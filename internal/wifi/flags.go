package wifi

import "strings"

// AuthFlags is a bit set of authentication methods.
type AuthFlags uint8

const (
	AuthOpen      AuthFlags = 0
	AuthWEP       AuthFlags = 0x01
	AuthWEPShared AuthFlags = 0x02
	AuthIEEE8021X AuthFlags = 0x04
	AuthWPAPSK    AuthFlags = 0x08
	AuthWPAEAP    AuthFlags = 0x10
	AuthWPA2PSK   AuthFlags = 0x20
	AuthWPA2EAP   AuthFlags = 0x40
)

// Has reports whether every bit of f is set.
func (a AuthFlags) Has(f AuthFlags) bool {
	return f != 0 && a&f == f
}

// IsOpen reports whether the network needs no key material.
func (a AuthFlags) IsOpen() bool {
	return a == AuthOpen
}

// IsPSK reports whether any pre-shared-key mode is set.
func (a AuthFlags) IsPSK() bool {
	return a&(AuthWPAPSK|AuthWPA2PSK) != 0
}

// IsEAP reports whether any enterprise mode is set.
func (a AuthFlags) IsEAP() bool {
	return a&(AuthWPAEAP|AuthWPA2EAP) != 0
}

var authNames = []struct {
	flag AuthFlags
	name string
}{
	{AuthWEP, "WEP"},
	{AuthWEPShared, "WEP-SHARED"},
	{AuthIEEE8021X, "IEEE8021X"},
	{AuthWPAPSK, "WPA-PSK"},
	{AuthWPAEAP, "WPA-EAP"},
	{AuthWPA2PSK, "WPA2-PSK"},
	{AuthWPA2EAP, "WPA2-EAP"},
}

// String renders the set as "[WPA-PSK/WPA2-PSK]", or "[NoneAuth]" when empty.
func (a AuthFlags) String() string {
	var parts []string
	for _, n := range authNames {
		if a.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "[NoneAuth]"
	}
	return "[" + strings.Join(parts, "/") + "]"
}

// EncryptionFlags is a bit set of ciphers.
type EncryptionFlags uint8

const (
	EncrNone EncryptionFlags = 0
	EncrWEP  EncryptionFlags = 0x01
	EncrTKIP EncryptionFlags = 0x02
	EncrCCMP EncryptionFlags = 0x04
)

func (e EncryptionFlags) Has(f EncryptionFlags) bool {
	return f != 0 && e&f == f
}

// String renders the set as "[TKIP+CCMP]", or "[NoneEncr]" when empty.
func (e EncryptionFlags) String() string {
	var parts []string
	if e.Has(EncrWEP) {
		parts = append(parts, "WEP")
	}
	if e.Has(EncrTKIP) {
		parts = append(parts, "TKIP")
	}
	if e.Has(EncrCCMP) {
		parts = append(parts, "CCMP")
	}
	if len(parts) == 0 {
		return "[NoneEncr]"
	}
	return "[" + strings.Join(parts, "+") + "]"
}

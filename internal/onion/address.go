package onion

import (
	"encoding/base32"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// V3 onion address constants.
const (
	// V3IDLength is the length of a v3 service identifier, the onion
	// address without its ".onion" suffix: 56 base32 characters.
	V3IDLength = 56

	// V3Version is the version byte embedded in v3 onion addresses.
	V3Version = 0x03

	// Suffix is the TLD suffix shared by all onion addresses.
	Suffix = ".onion"
)

// ErrInvalidPublicKey is returned when key material of the wrong size
// is offered for address derivation.
var ErrInvalidPublicKey = errors.New("onion public key must be exactly 32 bytes")

// v3Pattern matches a bare v3 service identifier. Base32 uses
// lowercase a-z and digits 2-7.
var v3Pattern = regexp.MustCompile(`^[a-z2-7]{56}$`)

// checksumPrefix seeds the v3 checksum hash, per the Tor rendezvous
// specification.
var checksumPrefix = []byte(".onion checksum")

// IsValidV3ID reports whether id is a well-formed v3 service
// identifier, including checksum verification.
//
// Full checksum validation rather than pattern matching alone: it
// catches typos and corrupted identifiers, and it is the same check
// tor applies before connecting.
func IsValidV3ID(id string) bool {
	id = strings.ToLower(strings.TrimSuffix(id, Suffix))
	if !v3Pattern.MatchString(id) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(id))
	if err != nil {
		return false
	}
	// 32-byte ed25519 public key, 2-byte checksum, 1-byte version.
	if len(decoded) != 35 {
		return false
	}
	pubkey := decoded[:32]
	checksum := decoded[32:34]
	if decoded[34] != V3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, V3Version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// ServiceIDFromPublicKey derives the v3 service identifier (without
// ".onion") for a 32-byte ed25519 public key.
func ServiceIDFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidPublicKey
	}

	checksum := computeV3Checksum(pubkey, V3Version)

	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, checksum...)
	data = append(data, V3Version)

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)), nil
}

// computeV3Checksum returns the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// Address joins a service identifier with the ".onion" suffix.
// Empty in, empty out, so an unpublished service renders as "".
func Address(serviceID string) string {
	if serviceID == "" {
		return ""
	}
	return serviceID + Suffix
}

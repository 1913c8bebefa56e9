// Package addr canonicalizes blockchain addresses to the single lowercase
// hex form the rest of the module assumes as a map key and comparison value.
package addr

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Canonicalize trims whitespace and lowercases a hex address. It does not
// validate checksum or length; callers that need a hard validity check
// should use Valid first.
func Canonicalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Valid reports whether raw is a well-formed hex address once trimmed.
func Valid(raw string) bool {
	return common.IsHexAddress(strings.TrimSpace(raw))
}

// MustCanonicalize canonicalizes raw and returns an error if it is not a
// well-formed hex address. Used at adapter boundaries where malformed
// addresses indicate a corrupt upstream response rather than user input.
//
// common.Address.Hex() returns an EIP-55 checksummed (mixed-case) string;
// this module's canonical form is always lowercase, so the checksum is
// discarded immediately.
func MustCanonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("addr: not a valid hex address: %q", raw)
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

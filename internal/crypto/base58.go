package crypto

import "math/big"

// base58 is a plain text-encoding helper (Bitcoin alphabet), not a
// cryptographic primitive — DID method identifiers and verkeys are
// conventionally rendered this way throughout the Aries ecosystem.

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Big = big.NewInt(58)

// Base58Encode renders b using the Bitcoin base58 alphabet, preserving
// leading zero bytes as leading '1's.
func Base58Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)
	mod := new(big.Int)
	var out []byte
	zero := big.NewInt(0)
	for x.Cmp(zero) > 0 {
		x.DivMod(x, base58Big, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, base58Alphabet[0])
	}
	// reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Base58Decode inverts Base58Encode.
func Base58Decode(s string) ([]byte, error) {
	x := big.NewInt(0)
	for _, r := range s {
		idx := -1
		for i, c := range base58Alphabet {
			if c == r {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errInvalidBase58(r)
		}
		x.Mul(x, base58Big)
		x.Add(x, big.NewInt(int64(idx)))
	}
	decoded := x.Bytes()
	leading := 0
	for _, r := range s {
		if r != rune(base58Alphabet[0]) {
			break
		}
		leading++
	}
	out := make([]byte, leading+len(decoded))
	copy(out[leading:], decoded)
	return out, nil
}

type errInvalidBase58 rune

func (e errInvalidBase58) Error() string {
	return "invalid base58 character: " + string(rune(e))
}

// Package digest provides pluggable 128-bit content digest providers for the
// hashwalk engine. A provider consumes a byte stream and produces a 16-byte
// digest rendered as 32 lowercase hexadecimal characters. The provider name
// doubles as the leading token of result log lines, so it must stay
// alphanumeric.
package digest

import (
	"crypto/md5" //nolint:gosec // content fingerprinting, not authentication
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes. Rendered digests are always
// 2*Size hex characters.
const Size = 16

// Provider computes a fixed-length content digest for a byte stream.
// Implementations are stateless per call and safe for concurrent use.
type Provider interface {
	// Name identifies the provider. Alphanumeric only.
	Name() string

	// Sum consumes r to EOF and returns the digest of its contents.
	Sum(r io.Reader) ([Size]byte, error)
}

// Hex renders a digest as 32 lowercase hexadecimal characters.
func Hex(sum [Size]byte) string {
	return hex.EncodeToString(sum[:])
}

// ByName returns the provider registered under name. The empty string
// selects the default (md5).
func ByName(name string) (Provider, error) {
	switch name {
	case "", "md5":
		return MD5(), nil
	case "blake3":
		return BLAKE3(), nil
	default:
		return nil, fmt.Errorf("unknown digest provider %q", name)
	}
}

// MD5 returns the default provider.
func MD5() Provider { return md5Provider{} }

// BLAKE3 returns a provider producing 128 bits of BLAKE3 XOF output.
func BLAKE3() Provider { return blake3Provider{} }

// File opens path and returns the digest of its contents. The file handle
// is held only for the duration of the call; callers bound concurrency.
func File(p Provider, path string) ([Size]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [Size]byte{}, err
	}
	defer f.Close()
	return p.Sum(f)
}

type md5Provider struct{}

func (md5Provider) Name() string { return "md5" }

func (md5Provider) Sum(r io.Reader) ([Size]byte, error) {
	h := md5.New() //nolint:gosec // content fingerprinting, not authentication
	if _, err := io.Copy(h, r); err != nil {
		return [Size]byte{}, err
	}
	var sum [Size]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

type blake3Provider struct{}

func (blake3Provider) Name() string { return "blake3" }

func (blake3Provider) Sum(r io.Reader) ([Size]byte, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return [Size]byte{}, err
	}

	var sum [Size]byte
	if _, err := io.ReadFull(h.Digest(), sum[:]); err != nil {
		return [Size]byte{}, err
	}
	return sum, nil
}

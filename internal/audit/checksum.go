package audit

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/hkdf"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

const (
	fallbackPrefix = "xxh64:"
	hkdfInfo       = "labassist audit checksum v1"
)

// Checksummer computes and verifies audit entry checksums.
//
// With a secret it produces HMAC-SHA256 over the canonical form of the
// entry. Without one it falls back to xxhash64, which detects accidental
// corruption only and must not be treated as proof of integrity.
type Checksummer struct {
	key []byte
}

// NewChecksummer derives the HMAC key from secret. An empty secret yields a
// fallback-only Checksummer.
func NewChecksummer(secret string) (*Checksummer, error) {
	if secret == "" {
		return &Checksummer{}, nil
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive audit key: %w", err)
	}
	return &Checksummer{key: key}, nil
}

// Authoritative reports whether checksums are keyed.
func (c *Checksummer) Authoritative() bool { return len(c.key) > 0 }

// Sum returns the checksum of e. The Checksum field itself is ignored.
func (c *Checksummer) Sum(e domain.AuditEntry) (string, error) {
	payload, err := canonical(e)
	if err != nil {
		return "", err
	}
	if !c.Authoritative() {
		return fallbackSum(payload), nil
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether e.Checksum matches its content. A keyed
// Checksummer rejects fallback checksums outright.
func (c *Checksummer) Verify(e domain.AuditEntry) bool {
	if e.Checksum == "" {
		return false
	}
	if c.Authoritative() && IsFallback(e.Checksum) {
		return false
	}
	want, err := c.Sum(e)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(e.Checksum)) == 1
}

// IsFallback reports whether sum was produced without a key.
func IsFallback(sum string) bool { return strings.HasPrefix(sum, fallbackPrefix) }

// verifyFallback reports whether e carries the unkeyed checksum of its
// content, whatever the key of c.
func (c *Checksummer) verifyFallback(e domain.AuditEntry) bool {
	if !IsFallback(e.Checksum) {
		return false
	}
	payload, err := canonical(e)
	if err != nil {
		return false
	}
	return fallbackSum(payload) == e.Checksum
}

func fallbackSum(payload []byte) string {
	return fallbackPrefix + strconv.FormatUint(xxhash.Sum64(payload), 16)
}

// canonical serialises e without its checksum, with object keys sorted at
// every level. Numbers keep their literal form so the result is stable
// across a JSON round trip.
func canonical(e domain.AuditEntry) ([]byte, error) {
	e.Checksum = ""
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal audit entry: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode audit entry: %w", err)
	}
	delete(tree, "checksum")

	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical entry: %w", err)
	}
	return out, nil
}

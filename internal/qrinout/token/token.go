package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TypeTag identifies our payloads among arbitrary scanned codes.
	TypeTag = "qr_in_out"
	// Version is the current payload protocol version.
	Version = "1.0"
)

// Mode selects how a checkpoint's token behaves.
type Mode string

const (
	// ModeStatic tokens never change and carry no signature or expiry.
	ModeStatic Mode = "static"
	// ModeRenewing tokens rotate on a timer and carry a sequence number
	// and an HMAC signature.
	ModeRenewing Mode = "renewing"
)

var ErrMalformed = errors.New("malformed token payload")

// Token is the scannable payload. Timestamps are kept as their wire strings:
// the signature is computed over the exact issued_at string embedded in the
// JSON, so round-tripping through time.Time would break verification for
// payloads serialized by another writer.
type Token struct {
	Type            string `json:"type"`
	Version         string `json:"version"`
	CheckpointID    string `json:"checkpoint_id"`
	Mode            Mode   `json:"mode"`
	CreatedAt       string `json:"created_at,omitempty"`
	Sequence        int64  `json:"sequence,omitempty"`
	IssuedAt        string `json:"issued_at,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	RefreshInterval int    `json:"refresh_interval,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// Codec mints and validates token payloads with a single shared secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// MintStatic builds the unchanging payload for a static-mode checkpoint.
// The content is regenerable at any time from checkpoint identity alone.
func (c *Codec) MintStatic(checkpointID string, now time.Time) (string, error) {
	t := Token{
		Type:         TypeTag,
		Version:      Version,
		CheckpointID: checkpointID,
		Mode:         ModeStatic,
		CreatedAt:    now.UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal static token: %w", err)
	}
	return string(b), nil
}

// MintRenewing builds a signed, sequence-numbered payload valid until
// expiresAt. The signature covers checkpoint_id, sequence and issued_at
// only; expiry and interval ride unauthenticated, bounded in practice by
// the checkpoint's stale-sequence check.
func (c *Codec) MintRenewing(checkpointID string, sequence int64, issuedAt, expiresAt time.Time, refreshInterval time.Duration) (string, error) {
	t := Token{
		Type:            TypeTag,
		Version:         Version,
		CheckpointID:    checkpointID,
		Mode:            ModeRenewing,
		Sequence:        sequence,
		IssuedAt:        issuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:       expiresAt.UTC().Format(time.RFC3339),
		RefreshInterval: int(refreshInterval.Seconds()),
	}
	t.Signature = c.sign(t)

	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal renewing token: %w", err)
	}
	return string(b), nil
}

// Parse strictly decodes a scanned payload. Malformed input yields
// ErrMalformed, never a partial token.
func (c *Codec) Parse(text string) (Token, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))

	var t Token
	if err := dec.Decode(&t); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if t.Type != TypeTag {
		return Token{}, fmt.Errorf("%w: unexpected type %q", ErrMalformed, t.Type)
	}
	if strings.TrimSpace(t.CheckpointID) == "" {
		return Token{}, fmt.Errorf("%w: missing checkpoint_id", ErrMalformed)
	}
	if t.Mode != ModeStatic && t.Mode != ModeRenewing {
		return Token{}, fmt.Errorf("%w: unknown mode %q", ErrMalformed, t.Mode)
	}
	return t, nil
}

// VerifySignature recomputes the HMAC over the token's signed fields and
// compares in constant time. Tokens without a signature never verify.
func (c *Codec) VerifySignature(t Token) bool {
	if t.Signature == "" {
		return false
	}
	return hmac.Equal([]byte(t.Signature), []byte(c.sign(t)))
}

// IsExpired reports whether the token's validity window has passed. Static
// tokens never expire; renewing tokens with a missing or unreadable
// expires_at are treated as expired. The boundary instant itself is still
// valid: expired means strictly after expires_at.
func IsExpired(t Token, now time.Time) bool {
	if t.Mode == ModeStatic {
		return false
	}
	exp, err := parseWireTime(t.ExpiresAt)
	if err != nil {
		return true
	}
	return now.After(exp)
}

// sign computes the hex HMAC-SHA-256 over the canonical
// checkpoint_id|sequence|issued_at string.
func (c *Codec) sign(t Token) string {
	payload := fmt.Sprintf("%s|%d|%s", t.CheckpointID, t.Sequence, t.IssuedAt)
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// parseWireTime reads a wire timestamp. Offset-less timestamps are taken as
// UTC rather than rejected, so comparing against an offset-aware clock never
// fails on mismatched awareness.
func parseWireTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

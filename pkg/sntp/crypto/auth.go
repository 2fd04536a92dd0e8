// Package crypto provides a ready-made symmetric-key authentication
// provider for SNTP exchanges: an NTP-style authenticator of a 4-byte key
// identifier followed by a keyed HMAC-SHA1 digest, appended after the base
// packet. Servers that share the passphrase can verify the request and sign
// the response the same way.
//
// The authentication interface itself is defined by the client package; any
// other scheme (AES-CMAC, Network Time Security, ...) can be plugged in by
// the caller instead of this one.
package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/ncode/TempoZero/pkg/sntp/common"
	"github.com/ncode/TempoZero/pkg/sntp/messages"
)

const (
	// KeyIDSize is the size of the key identifier preceding the digest.
	KeyIDSize = 4

	// DigestSize is the size of the HMAC-SHA1 digest.
	DigestSize = sha1.Size

	// AuthDataSize is the total authentication trailer appended after the
	// PacketBaseSize header bytes.
	AuthDataSize = KeyIDSize + DigestSize

	// derivedKeyLen and pbkdf2Iterations parameterize the per-server key
	// derivation from the shared passphrase.
	derivedKeyLen    = 20
	pbkdf2Iterations = 4096
)

// SymmetricAuth authenticates SNTP exchanges with per-server keys derived
// from one shared passphrase. The server name acts as the derivation salt,
// so every configured server verifies against a distinct key even when the
// passphrase is reused across the fleet.
type SymmetricAuth struct {
	keyID uint32
	keys  map[string][]byte // server name -> derived HMAC key
}

// NewSymmetricAuth derives keys for every server name in servers. The keyID
// is sent on the wire so the server can select the matching key.
func NewSymmetricAuth(keyID uint32, passphrase string, servers []string) *SymmetricAuth {
	keys := make(map[string][]byte, len(servers))
	for _, name := range servers {
		keys[name] = pbkdf2.Key([]byte(passphrase), []byte(name),
			pbkdf2Iterations, derivedKeyLen, sha1.New)
	}
	return &SymmetricAuth{keyID: keyID, keys: keys}
}

// GenerateClientAuth signs the base request bytes in buf and appends the
// key ID and digest after them. It returns the number of authentication
// bytes written.
func (a *SymmetricAuth) GenerateClientAuth(serverName string, buf []byte) (int, error) {
	key, ok := a.keys[serverName]
	if !ok {
		return 0, fmt.Errorf("%w: no key configured for server %q",
			common.ErrAuthFailure, serverName)
	}
	if len(buf) < messages.PacketBaseSize+AuthDataSize {
		return 0, common.ErrBufferTooSmall
	}

	trailer := buf[messages.PacketBaseSize:]
	binary.BigEndian.PutUint32(trailer[:KeyIDSize], a.keyID)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf[:messages.PacketBaseSize])
	mac.Sum(trailer[KeyIDSize:KeyIDSize])

	return AuthDataSize, nil
}

// ValidateServer verifies the authentication trailer of a full server
// response. A missing trailer, a foreign key ID or a digest mismatch all
// mean the server could not be authenticated; only a local configuration
// problem maps to common.ErrAuthFailure.
func (a *SymmetricAuth) ValidateServer(serverName string, response []byte) error {
	key, ok := a.keys[serverName]
	if !ok {
		return fmt.Errorf("%w: no key configured for server %q",
			common.ErrAuthFailure, serverName)
	}
	if len(response) != messages.PacketBaseSize+AuthDataSize {
		return fmt.Errorf("%w: response carries no authentication data",
			common.ErrServerNotAuthenticated)
	}

	trailer := response[messages.PacketBaseSize:]
	if binary.BigEndian.Uint32(trailer[:KeyIDSize]) != a.keyID {
		return fmt.Errorf("%w: key identifier mismatch",
			common.ErrServerNotAuthenticated)
	}

	mac := hmac.New(sha1.New, key)
	mac.Write(response[:messages.PacketBaseSize])
	expected := mac.Sum(nil)

	// Constant-time comparison to prevent timing attacks
	if !hmac.Equal(expected, trailer[KeyIDSize:]) {
		return fmt.Errorf("%w: digest mismatch", common.ErrServerNotAuthenticated)
	}
	return nil
}

/*
token.go - Unguessable identifier generation

Content ids and redeem codes are embedded in externally shared deep links,
so they must carry no guessable structure. Both are drawn from crypto/rand:
content ids are 16 hex characters (64 bits), codes are 12 characters over
[A-Z0-9] (~62 bits) behind a fixed prefix. Journal entry ids only need
uniqueness, not secrecy, and use UUIDv4.
*/
package ledger

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

const (
	codePrefix   = "REDEEM_"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 12
)

// NewContentID returns a fresh unguessable content identifier.
func NewContentID() ContentID {
	var b [8]byte
	mustRead(b[:])
	return ContentID(hex.EncodeToString(b[:]))
}

// NewRedeemCode returns a fresh unguessable redeem code.
func NewRedeemCode() string {
	buf := make([]byte, codeLength)
	mustRead(buf)
	for i, c := range buf {
		buf[i] = codeAlphabet[int(c)%len(codeAlphabet)]
	}
	return codePrefix + string(buf)
}

func newTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// mustRead fills b from crypto/rand. The platform CSPRNG not responding is
// not a recoverable condition for id generation.
func mustRead(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
}

package contract

import (
	"fmt"
	"strconv"

	"presence_dao/sdk"

	"lukechampine.com/blake3"
)

// packU64LEInline sprinkles a uint64 into dst in little-endian order so our keys stay compact.
func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

// packU64LE appends the encoded number to dst and returns the new slice.
func packU64LE(x uint64, dst []byte) []byte {
	return append(dst,
		byte(x),
		byte(x>>8),
		byte(x>>16),
		byte(x>>24),
		byte(x>>32),
		byte(x>>40),
		byte(x>>48),
		byte(x>>56),
	)
}

func stateKey() string {
	return string([]byte{kState})
}

// memberKey is the prefix byte followed by the raw address text.
func memberKey(addr sdk.Address) string {
	buf := make([]byte, 0, 1+len(addr))
	buf = append(buf, kMember)
	buf = append(buf, addr...)
	return string(buf)
}

func eventKey(id uint64) string {
	var buf [9]byte
	buf[0] = kEvent
	packU64LEInline(id, buf[1:])
	return string(buf[:])
}

// registrationKey mixes event id plus address bytes, one key per pair.
func registrationKey(eventID uint64, addr sdk.Address) string {
	buf := make([]byte, 0, 1+8+len(addr))
	buf = append(buf, kRegistration)
	buf = packU64LE(eventID, buf)
	buf = append(buf, addr...)
	return string(buf)
}

func proposalKey(id uint64) string {
	var buf [9]byte
	buf[0] = kProposal
	packU64LEInline(id, buf[1:])
	return string(buf[:])
}

func voteKey(proposalID uint64, addr sdk.Address) string {
	buf := make([]byte, 0, 1+8+len(addr))
	buf = append(buf, kVoteReceipt)
	buf = packU64LE(proposalID, buf)
	buf = append(buf, addr...)
	return string(buf)
}

// -----------------------------------------------------------------------------
// Account addresses
// -----------------------------------------------------------------------------

// SaltFor derives the per-deployment salt from a program id.
func SaltFor(programID string) [32]byte {
	return blake3.Sum256([]byte(programID))
}

// AccountAddress is the public address of a storage key: base58(blake3(salt ‖ key)).
func AccountAddress(salt [32]byte, key string) sdk.Address {
	buf := make([]byte, 0, len(salt)+len(key))
	buf = append(buf, salt[:]...)
	buf = append(buf, key...)
	return sdk.AddressFromHash(blake3.Sum256(buf))
}

// AccountKind names a record family for address derivation.
type AccountKind string

const (
	AccountState        AccountKind = "state"
	AccountMember       AccountKind = "member"
	AccountEvent        AccountKind = "event"
	AccountRegistration AccountKind = "registration"
	AccountProposal     AccountKind = "proposal"
	AccountVote         AccountKind = "vote"
)

// RecordKey builds the storage key for a record family. id is ignored for
// state and member; owner is ignored for state, event and proposal.
// Example payload: RecordKey(AccountRegistration, 3, "9xQe...")
func RecordKey(kind AccountKind, id uint64, owner sdk.Address) (string, error) {
	needsOwner := kind == AccountMember || kind == AccountRegistration || kind == AccountVote
	if needsOwner && !owner.IsValid() {
		return "", fmt.Errorf("%w: %s account needs a valid owner", ErrInvalidInput, kind)
	}
	switch kind {
	case AccountState:
		return stateKey(), nil
	case AccountMember:
		return memberKey(owner), nil
	case AccountEvent:
		return eventKey(id), nil
	case AccountRegistration:
		return registrationKey(id, owner), nil
	case AccountProposal:
		return proposalKey(id), nil
	case AccountVote:
		return voteKey(id, owner), nil
	default:
		return "", fmt.Errorf("%w: unknown account kind %q", ErrInvalidInput, string(kind))
	}
}

// DeriveAccount is RecordKey followed by AccountAddress.
func DeriveAccount(salt [32]byte, kind AccountKind, id uint64, owner sdk.Address) (sdk.Address, error) {
	key, err := RecordKey(kind, id, owner)
	if err != nil {
		return "", err
	}
	return AccountAddress(salt, key), nil
}

// UInt64ToString turns an id back into decimal text for logs or payload building.
// Example payload: UInt64ToString(9001)
func UInt64ToString(val uint64) string {
	return strconv.FormatUint(val, 10)
}

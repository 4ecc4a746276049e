/**
 * @description
 * Provably-fair random number derivation shared by every wager. The server
 * commits to a secret seed by publishing its SHA-256 hash before the wager;
 * the outcome is then an HMAC-SHA256 of "clientSeed:nonce" keyed by the
 * server seed. Because the derivation is deterministic, any party holding
 * the revealed server seed can recompute and audit a past result.
 *
 * @dependencies
 * - crypto/hmac, crypto/rand, crypto/sha256, encoding/hex: Standard Go crypto.
 */

package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// SeedPair is one server-seed commitment. ServerSeed stays secret until the
// wager resolves; Hash is shown to the player up front.
type SeedPair struct {
	ServerSeed string `json:"server_seed"`
	Hash       string `json:"server_seed_hash"`
}

// Commit generates a fresh 256-bit server seed and its published commitment.
func Commit() (SeedPair, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return SeedPair{}, fmt.Errorf("generate server seed: %w", err)
	}
	seed := hex.EncodeToString(raw)
	sum := sha256.Sum256([]byte(seed))
	return SeedPair{ServerSeed: seed, Hash: hex.EncodeToString(sum[:])}, nil
}

// NewClientSeed generates a seed for players who do not supply their own.
func NewClientSeed() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate client seed: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// HashSeed returns the published commitment for a server seed.
func HashSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// Draw derives the 32-bit outcome for one (serverSeed, clientSeed, nonce)
// triple: the leading 8 hex digits of HMAC-SHA256(serverSeed,
// "clientSeed:nonce") read as an unsigned integer. Identical inputs always
// produce identical output.
func Draw(serverSeed, clientSeed string, nonce int64) uint32 {
	return DrawAt(serverSeed, clientSeed, nonce, 0)
}

// DrawAt derives the index-th draw of a multi-draw wager (a slots grid needs
// nine). Index 0 is identical to Draw so single-draw games verify with the
// plain triple.
func DrawAt(serverSeed, clientSeed string, nonce int64, index int) uint32 {
	message := clientSeed + ":" + strconv.FormatInt(nonce, 10)
	if index > 0 {
		message += ":" + strconv.Itoa(index)
	}
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(message))
	digest := hex.EncodeToString(mac.Sum(nil))

	value, err := strconv.ParseUint(digest[:8], 16, 32)
	if err != nil {
		// Unreachable: the input is always 8 hex digits.
		panic(fmt.Sprintf("fair: parse digest prefix %q: %v", digest[:8], err))
	}
	return uint32(value)
}

// Verify recomputes Draw(...) mod modulus and compares it to a claimed
// outcome. It is exposed publicly so any party can confirm a past result
// without trusting the server retroactively.
func Verify(serverSeed, clientSeed string, nonce int64, claimedOutcome uint32, modulus uint32) bool {
	if modulus == 0 {
		return false
	}
	return Draw(serverSeed, clientSeed, nonce)%modulus == claimedOutcome
}

// VerifyCommitment checks that a revealed server seed matches its published
// hash.
func VerifyCommitment(serverSeed, publishedHash string) bool {
	return HashSeed(serverSeed) == publishedHash
}

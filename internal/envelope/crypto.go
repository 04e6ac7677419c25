package envelope

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyPair holds the ECDSA key material for one agent identity. Generated
// once at registration time (spec.md §3 AgentIdentity) and held for the
// lifetime of the agent process; the private key never leaves this struct.
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  *secp256k1.PublicKey
}

// GenerateKeyPair mints a new secp256k1 key pair, grounded on
// SAGE-X-project-sage/crypto/keys/secp256k1.go's GenerateSecp256k1KeyPair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, Wrap(KindConfigError, "generate key pair", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// PublicKeyHex returns the compressed public key, hex-encoded, suitable for
// storing alongside an AgentIdentity's accountId.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.Public.SerializeCompressed())
}

// PrivateKeyHex returns the private key scalar, hex-encoded, in the form
// ParsePrivateKeyHex accepts — the shape an agent's *_PRIVATE_KEY
// environment variable carries.
func (k *KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(k.Private.Serialize())
}

// ParsePublicKeyHex reconstructs a public key from its compressed hex form.
func ParsePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, Wrap(KindIntegrityError, "decode public key hex", err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, Wrap(KindIntegrityError, "parse public key", err)
	}
	return pub, nil
}

// ParsePrivateKeyHex reconstructs a KeyPair from a hex-encoded secp256k1
// private key scalar, the form an agent's *_PRIVATE_KEY environment
// variable carries (spec.md §6 AgentRoleConfig).
func ParsePrivateKeyHex(s string) (*KeyPair, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, Wrap(KindConfigError, "decode private key hex", err)
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// SignHashAndTimestamp computes ECDSA signature over SHA-256(hash||timestamp)
// per the Anchor Record invariant in spec.md §3: "signature: ECDSA over
// hash || timestamp". hash is the hex-encoded payload hash; timestamp is
// the sender's millis.
func SignHashAndTimestamp(priv *secp256k1.PrivateKey, hashHex string, timestamp int64) (string, error) {
	digest := signingDigest(hashHex, timestamp)
	sig := ecdsaSign(priv.ToECDSA(), digest)
	return sig, nil
}

// Verifier checks a signature produced by SignHashAndTimestamp.
//
// spec.md §4.3 documents that current implementations MAY accept any
// signature pending proper verification; DefaultVerifier below implements
// that permissive behavior, and StrictVerifier implements real
// cryptographic verification behind an explicit opt-in (spec.md §9).
type Verifier interface {
	Verify(pub *secp256k1.PublicKey, hashHex string, timestamp int64, sigHex string) bool
}

// DefaultVerifier is the fabric's default, matching current upstream
// behavior: it does not check the signature cryptographically. This is
// intentional and documented — see DESIGN.md "Signature verification
// strictness". It reports any present, well-formed hex signature as valid
// and rejects an empty or non-hex one.
type DefaultVerifier struct{}

func (DefaultVerifier) Verify(_ *secp256k1.PublicKey, _ string, _ int64, sigHex string) bool {
	if sigHex == "" {
		return false
	}
	_, err := hex.DecodeString(sigHex)
	return err == nil
}

// StrictVerifier performs real ECDSA verification. Tests exercise it
// directly even though it is not the default. No fabric code path calls a
// Verifier: anchor.Protocol carries one, but Protocol.Receive does not
// check signatures, so the Verifier wired in FabricRuntime has no effect
// on which messages are dispatched.
type StrictVerifier struct{}

func (StrictVerifier) Verify(pub *secp256k1.PublicKey, hashHex string, timestamp int64, sigHex string) bool {
	digest := signingDigest(hashHex, timestamp)
	raw, err := hex.DecodeString(sigHex)
	if err != nil || len(raw) != 64 {
		return false
	}
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:])
	return ecdsa.Verify(pub.ToECDSA(), digest, r, s)
}

func signingDigest(hashHex string, timestamp int64) []byte {
	buf := make([]byte, len(hashHex)+8)
	copy(buf, hashHex)
	binary.BigEndian.PutUint64(buf[len(hashHex):], uint64(timestamp))
	sum := sha256.Sum256(buf)
	return sum[:]
}

func ecdsaSign(priv *ecdsa.PrivateKey, digest []byte) string {
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return ""
	}
	out := make([]byte, 64)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(out[32-len(rBytes):32], rBytes)
	copy(out[64-len(sBytes):64], sBytes)
	return hex.EncodeToString(out)
}

// Sha256Hex returns the hex-encoded SHA-256 digest of data, used for both
// the anchor's payload hash and the Verification Cache key.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MintMessageID returns a 128-bit random hex id, per spec.md §4.3.
func MintMessageID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", Wrap(KindConfigError, "mint message id", err)
	}
	return hex.EncodeToString(buf), nil
}

// PayloadCodec is the pluggable "encryption" swap point from spec.md §9:
// today it's opportunistic base64, tomorrow an AEAD codec, without
// rippling through the anchor/verification hashing logic (hash is always
// computed over the codec's output).
type PayloadCodec interface {
	Obfuscate(plain []byte) (string, error)
	Deobfuscate(encoded string) ([]byte, error)
}

// Base64Codec is the default PayloadCodec: plain base64, a placeholder for
// future symmetric encryption (spec.md §4.3, §9).
type Base64Codec struct{}

func (Base64Codec) Obfuscate(plain []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(plain), nil
}

func (Base64Codec) Deobfuscate(encoded string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, Wrap(KindIntegrityError, "deobfuscate payload", err)
	}
	return b, nil
}

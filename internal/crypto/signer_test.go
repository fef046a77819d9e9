package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe512961708279feb1be6ae5538da033"

func TestNewSigner_RejectsBadKey(t *testing.T) {
	if _, err := NewSigner("not-hex"); err == nil {
		t.Fatal("NewSigner accepted an invalid key")
	}
}

func TestNewSigner_AcceptsPrefixedKey(t *testing.T) {
	plain, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	prefixed, err := NewSigner("0x" + testKey)
	if err != nil {
		t.Fatalf("NewSigner with 0x prefix: %v", err)
	}
	if plain.Address() != prefixed.Address() {
		t.Fatalf("addresses differ: %s vs %s", plain.Address(), prefixed.Address())
	}
}

func TestSignAction_RecoversToSignerAddress(t *testing.T) {
	s, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	action := []byte(`{"type":"order","orders":[{"a":0,"b":true}]}`)
	sigHex, err := s.SignAction(action, 1756200000000, true)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		t.Fatalf("signature not hex: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	// Rebuild the digest and recover the public key.
	structHash := ethcrypto.Keccak256(concatBytes(
		agentTypeHash,
		ethcrypto.Keccak256([]byte("a")),
		connectionID(action, 1756200000000),
	))
	digest := eip712Hash(s.domainSep, structHash)

	recSig := make([]byte, 65)
	copy(recSig, sig)
	recSig[64] -= 27
	pub, err := ethcrypto.SigToPub(digest, recSig)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if got := ethcrypto.PubkeyToAddress(*pub); got != s.Address() {
		t.Fatalf("recovered address %s, want %s", got, s.Address())
	}
}

func TestSignAction_NonceChangesSignature(t *testing.T) {
	s, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	action := []byte(`{"type":"cancel"}`)
	sig1, err := s.SignAction(action, 1, true)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}
	sig2, err := s.SignAction(action, 2, true)
	if err != nil {
		t.Fatalf("SignAction: %v", err)
	}
	if sig1 == sig2 {
		t.Fatal("different nonces produced identical signatures")
	}
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKey {
		t.Fatalf("round trip = %q, want %q", got, testKey)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("DecryptKey accepted wrong password")
	}
}

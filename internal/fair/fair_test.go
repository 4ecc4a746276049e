package fair

import "testing"

func TestDrawIsDeterministic(t *testing.T) {
	const serverSeed = "6d65726974206d696e74207365727665722073656564"
	const clientSeed = "player-seed"

	first := Draw(serverSeed, clientSeed, 7)
	for i := 0; i < 100; i++ {
		if got := Draw(serverSeed, clientSeed, 7); got != first {
			t.Fatalf("draw not deterministic: got %d, want %d", got, first)
		}
	}
}

func TestDrawVariesAcrossInputs(t *testing.T) {
	const serverSeed = "aa11"
	const clientSeed = "bb22"

	base := Draw(serverSeed, clientSeed, 1)
	if Draw(serverSeed, clientSeed, 2) == base &&
		Draw(serverSeed, "other", 1) == base &&
		Draw("other", clientSeed, 1) == base {
		t.Fatal("expected at least one varied input to change the draw")
	}
}

func TestDrawAtIndexZeroMatchesDraw(t *testing.T) {
	if Draw("s", "c", 3) != DrawAt("s", "c", 3, 0) {
		t.Fatal("index 0 must match the plain draw")
	}
	if DrawAt("s", "c", 3, 1) == DrawAt("s", "c", 3, 2) {
		t.Fatal("distinct indexes should not collide for these inputs")
	}
}

func TestVerifyAgreesWithDraw(t *testing.T) {
	const serverSeed = "deadbeef"
	const clientSeed = "cafef00d"

	for nonce := int64(0); nonce < 50; nonce++ {
		outcome := Draw(serverSeed, clientSeed, nonce) % 100
		if !Verify(serverSeed, clientSeed, nonce, outcome, 100) {
			t.Fatalf("verify rejected its own outcome at nonce %d", nonce)
		}
		if Verify(serverSeed, clientSeed, nonce, outcome+1, 100) {
			t.Fatalf("verify accepted a forged outcome at nonce %d", nonce)
		}
	}
}

func TestVerifyRejectsZeroModulus(t *testing.T) {
	if Verify("s", "c", 1, 0, 0) {
		t.Fatal("zero modulus must never verify")
	}
}

func TestCommitProducesVerifiableHash(t *testing.T) {
	pair, err := Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(pair.ServerSeed) != 64 {
		t.Fatalf("expected 256-bit hex server seed, got %d chars", len(pair.ServerSeed))
	}
	if !VerifyCommitment(pair.ServerSeed, pair.Hash) {
		t.Fatal("commitment hash does not match server seed")
	}
	if VerifyCommitment(pair.ServerSeed+"0", pair.Hash) {
		t.Fatal("tampered seed must not match commitment")
	}
}

func TestCommitSeedsAreUnique(t *testing.T) {
	a, err := Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	b, err := Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if a.ServerSeed == b.ServerSeed {
		t.Fatal("two commits produced the same server seed")
	}
}

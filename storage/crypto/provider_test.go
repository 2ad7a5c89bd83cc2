package crypto

import "testing"

func TestProvidersRoundTrip(t *testing.T) {
	for _, name := range []string{"aes-256-gcm", "chacha20-poly1305"} {
		p, err := New(Config{Provider: name})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := p.Init([]byte("correct horse battery staple"), []byte("salt1234")); err != nil {
			t.Fatalf("%s: init: %v", name, err)
		}
		if err := p.SelfTest(); err != nil {
			t.Fatalf("%s: self-test: %v", name, err)
		}

		plaintext := make([]byte, 1024)
		aad := PageAAD(7)
		sealed, err := p.Encrypt(7, plaintext, aad[:])
		if err != nil {
			t.Fatalf("%s: encrypt: %v", name, err)
		}
		opened, err := p.Decrypt(7, sealed, aad[:])
		if err != nil {
			t.Fatalf("%s: decrypt: %v", name, err)
		}
		if len(opened) != len(plaintext) {
			t.Fatalf("%s: length mismatch after round trip", name)
		}
	}
}

func TestTamperedCiphertextFailsClosed(t *testing.T) {
	p, _ := New(Config{Provider: "aes-256-gcm"})
	if err := p.Init([]byte("pw"), []byte("salt")); err != nil {
		t.Fatal(err)
	}
	aad := PageAAD(1)
	sealed, err := p.Encrypt(1, []byte("data"), aad[:])
	if err != nil {
		t.Fatal(err)
	}
	sealed[0] ^= 0xFF
	if _, err := p.Decrypt(1, sealed, aad[:]); err == nil {
		t.Fatal("expected decrypt of tampered ciphertext to fail")
	}
}

package dkim

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateAndSign(t *testing.T) {
	kp, err := GenerateKey("example.com", "phishguard")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	signer := NewSigner(kp.PrivateKey, kp.Domain, kp.Selector)

	message := []byte("From: a@example.com\r\n" +
		"To: b@example.com\r\n" +
		"Subject: test\r\n" +
		"\r\n" +
		"Hello\r\n")

	signed, err := signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	s := string(signed)
	if !strings.Contains(s, "DKIM-Signature:") {
		t.Error("signed message missing DKIM-Signature header")
	}
	if !strings.Contains(s, "d=example.com") {
		t.Error("signature missing domain tag")
	}
	if !strings.Contains(s, "s=phishguard") {
		t.Error("signature missing selector tag")
	}
	if !strings.Contains(s, "Hello") {
		t.Error("signed message lost its body")
	}
}

func TestKeyPairDNS(t *testing.T) {
	kp, err := GenerateKey("example.com", "mail")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	if got := kp.DNSName(); got != "mail._domainkey.example.com" {
		t.Errorf("DNSName() = %q", got)
	}

	record := kp.DNSRecord()
	if !strings.HasPrefix(record, "v=DKIM1; k=rsa; p=") {
		t.Errorf("DNSRecord() = %q", record)
	}
	if len(record) < 100 {
		t.Error("DNS record should contain the base64 public key")
	}
}

func TestSaveAndLoadPrivateKey(t *testing.T) {
	kp, err := GenerateKey("example.com", "mail")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "keys", "example.com.key")
	if err := kp.SavePrivateKey(path); err != nil {
		t.Fatalf("SavePrivateKey() error = %v", err)
	}

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey() error = %v", err)
	}
	if loaded.N.Cmp(kp.PrivateKey.N) != 0 {
		t.Error("loaded key does not match the generated key")
	}

	// Round trip through a file-based signer
	signer, err := NewSignerFromFile(path, "example.com", "mail")
	if err != nil {
		t.Fatalf("NewSignerFromFile() error = %v", err)
	}
	if signer.Domain() != "example.com" || signer.Selector() != "mail" {
		t.Errorf("signer = %s/%s", signer.Domain(), signer.Selector())
	}
}

func TestLoadPrivateKeyErrors(t *testing.T) {
	if _, err := LoadPrivateKey(filepath.Join(t.TempDir(), "missing.key")); err == nil {
		t.Error("expected error for missing file")
	}
}

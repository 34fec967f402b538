package gateway

import "testing"

func TestSignVerify_RoundTrip(t *testing.T) {
	sig := Sign("ord-1", "pay-9", "secret")
	if sig == "" {
		t.Fatal("expected non-empty signature")
	}
	if !Verify("ord-1", "pay-9", sig, "secret") {
		t.Fatal("expected signature to verify")
	}
}

func TestVerify_Tampered(t *testing.T) {
	sig := Sign("ord-1", "pay-9", "secret")
	if Verify("ord-1", "pay-8", sig, "secret") {
		t.Fatal("expected tampered payment id to fail verification")
	}
	if Verify("ord-2", "pay-9", sig, "secret") {
		t.Fatal("expected tampered order id to fail verification")
	}
	if Verify("ord-1", "pay-9", sig, "other-secret") {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestVerify_EmptyInputs(t *testing.T) {
	if Verify("ord-1", "pay-9", "", "secret") {
		t.Fatal("expected empty signature to fail verification")
	}
	if Verify("ord-1", "pay-9", Sign("ord-1", "pay-9", "secret"), "") {
		t.Fatal("expected empty secret to fail verification")
	}
}

func TestVerify_CaseInsensitiveHex(t *testing.T) {
	sig := Sign("ord-1", "pay-9", "secret")
	upper := ""
	for _, r := range sig {
		if r >= 'a' && r <= 'f' {
			r = r - 'a' + 'A'
		}
		upper += string(r)
	}
	if !Verify("ord-1", "pay-9", upper, "secret") {
		t.Fatal("expected hex comparison to be case-insensitive")
	}
}

func TestVerify_NonHexSignature(t *testing.T) {
	if Verify("ord-1", "pay-9", "not-hex!", "secret") {
		t.Fatal("expected non-hex signature to fail verification")
	}
}

func TestBuildSignatureBase(t *testing.T) {
	if base := BuildSignatureBase("a", "b"); base != "a|b" {
		t.Fatalf("unexpected base string: %s", base)
	}
}

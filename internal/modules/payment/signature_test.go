package payment

import "testing"

func TestSignerVerify(t *testing.T) {
	s := NewSigner("test-secret")
	sig := s.Sign("order_1", "pay_1")

	if !s.Verify("order_1", "pay_1", sig) {
		t.Fatal("valid signature rejected")
	}
	if s.Verify("order_1", "pay_2", sig) {
		t.Error("signature accepted for a different payment")
	}
	if s.Verify("order_2", "pay_1", sig) {
		t.Error("signature accepted for a different order")
	}
	if s.Verify("order_1", "pay_1", sig[:len(sig)-1]+"0") {
		t.Error("tampered signature accepted")
	}
	if s.Verify("order_1", "pay_1", "") {
		t.Error("empty signature accepted")
	}
}

func TestSignerSecretMatters(t *testing.T) {
	a := NewSigner("secret-a")
	b := NewSigner("secret-b")
	if b.Verify("order_1", "pay_1", a.Sign("order_1", "pay_1")) {
		t.Fatal("signature verified under a different secret")
	}
}

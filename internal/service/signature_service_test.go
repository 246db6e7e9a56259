package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService("sk_test_secret")
	payload := []byte(`{"event":"charge.success","data":{"reference":"REF-abc","amount":500000}}`)

	sig := svc.Sign(payload)
	assert.NotEmpty(t, sig)
	assert.True(t, svc.Verify(payload, sig))
}

func TestHMACSignatureService_Verify_TamperedPayload(t *testing.T) {
	svc := NewHMACSignatureService("sk_test_secret")
	payload := []byte(`{"amount":500000}`)

	sig := svc.Sign(payload)
	assert.False(t, svc.Verify([]byte(`{"amount":900000}`), sig))
}

func TestHMACSignatureService_Verify_WrongKey(t *testing.T) {
	a := NewHMACSignatureService("key-a")
	b := NewHMACSignatureService("key-b")
	payload := []byte("payload")

	assert.False(t, b.Verify(payload, a.Sign(payload)))
}

func TestHMACSignatureService_Verify_EmptySignature(t *testing.T) {
	svc := NewHMACSignatureService("sk_test_secret")
	assert.False(t, svc.Verify([]byte("payload"), ""))
}

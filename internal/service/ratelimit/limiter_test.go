package ratelimit

import "testing"

func TestAllowConsumesTokens(t *testing.T) {
	l := New()
	if !l.Allow("binance", 2, 0) {
		t.Fatalf("first call should pass")
	}
	if !l.Allow("binance", 2, 0) {
		t.Fatalf("second call should pass")
	}
	if l.Allow("binance", 2, 0) {
		t.Fatalf("third call should be limited")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("binance", 1, 0) {
		t.Fatalf("binance should pass")
	}
	if l.Allow("binance", 1, 0) {
		t.Fatalf("binance should be limited")
	}
	if !l.Allow("kraken", 1, 0) {
		t.Fatalf("kraken has its own bucket")
	}
}

package telemetry

import (
	"context"
	"testing"
)

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		in      string
		target  string
		tls     bool
		wantErr bool
	}{
		{"localhost:4317", "localhost:4317", false, false},
		{"http://collector:4317/v1/metrics", "collector:4317", false, false},
		{"https://collector.example.com:4317", "collector.example.com:4317", true, false},
		{"http://", "", false, true},
	}
	for _, tc := range tests {
		target, tls, err := grpcTarget(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("grpcTarget(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || target != tc.target || tls != tc.tls {
			t.Fatalf("grpcTarget(%q) = %q, %v, %v", tc.in, target, tls, err)
		}
	}
}

func TestNewMeterProviderWithoutEndpoint(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), "", "nuggetauth-test", false)
	if err != nil {
		t.Fatalf("NewMeterProvider: %v", err)
	}
	if _, err := mp.Meter("test").Int64Counter("probe"); err != nil {
		t.Fatalf("meter unusable: %v", err)
	}
	if err := mp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewMeterProviderWithEndpoint(t *testing.T) {
	// The gRPC exporter dials lazily, so construction succeeds without a collector.
	mp, err := NewMeterProvider(context.Background(), "127.0.0.1:4317", "nuggetauth-test", true)
	if err != nil {
		t.Fatalf("NewMeterProvider: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = mp.Shutdown(ctx)
}

package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "insecure collector", cfg: Config{ServiceName: "excuse-deck", ServiceVersion: "dev", Endpoint: "localhost:4318", Insecure: true}},
		{name: "empty service name", cfg: Config{Endpoint: "localhost:4318"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			// no collector is listening; an empty batch still shuts down cleanly
			if err := Shutdown(ctx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}

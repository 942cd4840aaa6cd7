package stream

import (
	"context"
	"testing"
	"time"

	"github.com/eventgate/checkin/pkg/config"
)

func TestNewProducerDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.KafkaConfig
	}{
		{"nil config", nil},
		{"disabled config", &config.KafkaConfig{Enabled: false, Brokers: []string{"localhost:9092"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProducer(tt.cfg)
			if err != nil {
				t.Fatalf("NewProducer() error = %v", err)
			}
			if p == nil {
				t.Fatal("expected non-nil producer")
			}

			// No-op publish and close must be safe without a client.
			p.PublishAdmission(context.Background(), Admission{
				RegistrationID: "reg-1",
				EventID:        "event-1",
				UserID:         "user-1",
				CheckedInAt:    time.Now(),
			})
			if err := p.Close(context.Background()); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestNilProducerIsSafe(t *testing.T) {
	var p *Producer
	p.PublishAdmission(context.Background(), Admission{})
	if err := p.Close(context.Background()); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

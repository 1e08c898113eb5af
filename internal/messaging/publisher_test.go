package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tassosgomes/GestAuto-sub000/internal/client"
	"github.com/tassosgomes/GestAuto-sub000/internal/config"
)

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EventsConfig
		wantName string
		wantErr  bool
	}{
		{
			name:     "kafka",
			cfg:      config.EventsConfig{Publisher: config.PublisherKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "sales"},
			wantName: KafkaPublisherName,
		},
		{
			name:     "webhook",
			cfg:      config.EventsConfig{Publisher: config.PublisherWebhook, WebhookURL: "http://orders.local/events", WebhookTimeout: time.Second},
			wantName: client.PublisherName,
		},
		{
			name:     "log",
			cfg:      config.EventsConfig{Publisher: config.PublisherLog},
			wantName: LogPublisherName,
		},
		{
			name:     "empty falls back to log",
			cfg:      config.EventsConfig{},
			wantName: LogPublisherName,
		},
		{
			name:    "unknown",
			cfg:     config.EventsConfig{Publisher: "carrier-pigeon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher, closeFn, err := FromConfig(tt.cfg)
			require.NotNil(t, closeFn)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, publisher)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, publisher.Name())
			assert.NoError(t, closeFn())
		})
	}
}

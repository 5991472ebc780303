package blockstore

import (
	"context"
	"path/filepath"
	"testing"

	"orbit-go/internal/config"
)

func TestNewBlockstoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BlockstoreConfig
		wantErr bool
	}{
		{
			name: "memory blockstore",
			cfg:  config.BlockstoreConfig{Type: "memory"},
		},
		{
			name: "filesystem blockstore",
			cfg:  config.BlockstoreConfig{Type: "filesystem", FSRoot: filepath.Join(t.TempDir(), "blocks")},
		},
		{
			name:    "filesystem blockstore without root",
			cfg:     config.BlockstoreConfig{Type: "filesystem"},
			wantErr: true,
		},
		{
			name:    "s3 blockstore without bucket",
			cfg:     config.BlockstoreConfig{Type: "s3"},
			wantErr: true,
		},
		{
			name:    "unknown blockstore type",
			cfg:     config.BlockstoreConfig{Type: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewBlockstoreFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBlockstoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got == nil {
				t.Fatal("NewBlockstoreFromConfig() returned nil blockstore")
			}
			if tt.wantErr && got != nil {
				t.Errorf("NewBlockstoreFromConfig() = %T, want nil on error", got)
			}
		})
	}
}

package common

import (
	"math"
	"strings"
	"testing"
)

func TestRandomSystemID(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{
			name:    "Valid length",
			length:  6,
			wantErr: false,
		},
		{
			name:    "Zero length",
			length:  0,
			wantErr: true,
		},
		{
			name:    "Negative length",
			length:  -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RandomSystemID(tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("RandomSystemID() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if len(got) != tt.length {
					t.Errorf("RandomSystemID() length = %v, want %v", len(got), tt.length)
				}
				for _, c := range got {
					if !strings.ContainsRune(systemIDChars, c) {
						t.Errorf("RandomSystemID() contains invalid character: %v", c)
					}
				}
			}
		})
	}
}

func TestSecureRandomInt(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		wantErr bool
	}{
		{
			name:    "Valid max",
			max:     100,
			wantErr: false,
		},
		{
			name:    "Zero max",
			max:     0,
			wantErr: true,
		},
		{
			name:    "Negative max",
			max:     -1,
			wantErr: true,
		},
		{
			name:    "Too large max",
			max:     math.MaxInt32 + 1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secureRandomInt(tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("secureRandomInt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if got < 0 || got >= tt.max {
					t.Errorf("secureRandomInt() = %v, want in range [0, %v)", got, tt.max)
				}
			}
		})
	}
}

func TestRandomSystemIDUniqueness(t *testing.T) {
	generated := make(map[string]bool)
	numIDs := 1000

	for i := 0; i < numIDs; i++ {
		id, err := RandomSystemID(8)
		if err != nil {
			t.Errorf("RandomSystemID() error = %v", err)
			return
		}
		if generated[id] {
			t.Errorf("RandomSystemID() generated duplicate ID: %v", id)
			return
		}
		generated[id] = true
	}
}

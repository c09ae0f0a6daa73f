package platform

import (
	"testing"
	"time"
)

func TestOptionsExpire(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int32
	}{
		{"default", Options{}, -1},
		{"timeout", Options{Timeout: 3 * time.Second}, 3000},
		{"critical", Options{Timeout: time.Second, Critical: true}, 0},
	}
	for _, tt := range tests {
		if got := tt.opts.expire(); got != tt.want {
			t.Errorf("%s: expire() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
		wantLevel  zapcore.Level
	}{
		{"prod", "", false, zapcore.InfoLevel},
		{"local", "", false, zapcore.DebugLevel},
		{"test", "warn", false, zapcore.WarnLevel},
		{"staging", "", true, 0},
		{"prod", "loud", true, 0},
	}
	for _, tc := range tests {
		t.Run(tc.env+"/"+tc.level, func(t *testing.T) {
			l, err := NewLogger(tc.env, tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Core().Enabled(tc.wantLevel) || l.Core().Enabled(tc.wantLevel-1) {
				t.Errorf("logger level is not %v", tc.wantLevel)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}

	def := zap.NewExample()
	if got := FromContextOr(context.Background(), def); got != def {
		t.Error("expected fallback logger")
	}

	scoped := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := ContextWithLogger(context.Background(), scoped)
	if got := FromContextOr(ctx, def); got != scoped {
		t.Error("expected request-scoped logger")
	}
}

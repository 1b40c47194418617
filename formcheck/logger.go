package formcheck

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wasmkit/formcheck/wasm"
)

// Logger receives structured diagnostics for instructions the checker
// rejects. The checker itself never formats a message or owns a terminal,
// file, or network resource (SPEC_FULL.md §7); Logger is the seam an
// embedding engine uses to surface that for humans. A nil Logger is valid
// and silently drops diagnostics.
type Logger interface {
	RejectedInstruction(err *wasm.CheckError)
}

// zapLogger is the Logger NewZapLogger returns, backed by go.uber.org/zap the same way
// the sibling WASM-runtime example in this pack threads a *zap.Logger
// through its engine and linker packages.
type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger wraps an existing *zap.Logger as a Logger. Passing nil uses
// zap.NewNop(), matching the sibling example's "no-op by default" policy.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l}
}

func (z *zapLogger) RejectedInstruction(err *wasm.CheckError) {
	fields := []zapcore.Field{
		zap.String("code", string(err.Code)),
		zap.Uint16("opcode", uint16(err.Opcode)),
		zap.Uint32("offset", err.Offset),
	}
	if err.Index != nil {
		fields = append(fields,
			zap.String("index_category", string(err.Index.Category)),
			zap.Uint32("index", err.Index.Index),
			zap.Uint32("bound", err.Index.Bound),
		)
	}
	z.l.Warn("rejected instruction during form check", fields...)
}

// noopLogger is used when a Checker is constructed without WithLogger.
type noopLogger struct{}

func (noopLogger) RejectedInstruction(*wasm.CheckError) {}

package wasm

import (
	"context"

	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

// maxConsoleMessage bounds how far console imports scan for a terminator.
const maxConsoleMessage = 64 * 1024

// Log levels understood by logMessage.
// 0 = debug, 1 = info, 2 = warn, 3 = error
const (
	levelDebug uint32 = iota
	levelInfo
	levelWarn
	levelError
)

// HostFunctionsImpl implements the console imports guests use for logging.
type HostFunctionsImpl struct {
	guest  *Guest
	logger *zap.Logger
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

func (h *HostFunctionsImpl) Name() string    { return protocol.ConsolePlugin }
func (h *HostFunctionsImpl) Version() string { return protocol.ConsoleVersion }

// OnInit binds the console to the guest whose memory it reads.
func (h *HostFunctionsImpl) OnInit(guest *Guest) error {
	h.guest = guest
	h.logger = h.logger.With(zap.String("instance_id", guest.ID()))
	return nil
}

// RegisterPlugin exports console_log and the leveled variants.
func (h *HostFunctionsImpl) RegisterPlugin(imports *ImportTable) error {
	levels := []struct {
		name  string
		level uint32
	}{
		{protocol.ImportConsoleLog, levelInfo},
		{protocol.ImportConsoleDebug, levelDebug},
		{protocol.ImportConsoleInfo, levelInfo},
		{protocol.ImportConsoleWarn, levelWarn},
		{protocol.ImportConsoleError, levelError},
	}
	for _, l := range levels {
		level := l.level
		fn := func(ctx context.Context, ptr uint32) {
			h.logCString(level, ptr)
		}
		if err := imports.Func(l.name, fn, "ptr"); err != nil {
			return err
		}
	}
	return nil
}

// logCString reads a NUL-terminated message from Wasm memory and logs it.
func (h *HostFunctionsImpl) logCString(level uint32, ptr uint32) {
	mem := h.guest.Memory()
	if mem == nil {
		h.logger.Error("Console call from guest without memory")
		return
	}
	msg, err := mem.ReadCString(ptr, maxConsoleMessage)
	if err != nil {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Error(err),
		)
		return
	}
	h.logMessage(level, msg)
}

// logMessage logs msg at the given guest level.
func (h *HostFunctionsImpl) logMessage(level uint32, msg string) {
	switch level {
	case levelDebug:
		h.logger.Debug(msg)
	case levelInfo:
		h.logger.Info(msg)
	case levelWarn:
		h.logger.Warn(msg)
	case levelError:
		h.logger.Error(msg)
	default:
		h.logger.Info(msg)
	}
}

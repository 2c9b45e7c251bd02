package lsp

import (
	"context"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logQueueSize = 100

// clientCore is a zapcore.Core forwarding entries to the client as
// window/logMessage notifications. Delivery happens on one goroutine so
// logging never waits on the connection.
type clientCore struct {
	zapcore.LevelEnabler

	client  protocol.Client
	encoder zapcore.Encoder
	queue   chan *protocol.LogMessageParams
	done    <-chan struct{}
}

// NewClientLogger returns a logger writing to fallback and mirroring
// entries at or above level to the client. Call stop to end delivery;
// entries still queued are dropped.
func NewClientLogger(client protocol.Client, fallback zapcore.Core, level zapcore.LevelEnabler) (logger *zap.Logger, stop func()) {
	ctx, cancel := context.WithCancel(context.Background())

	core := &clientCore{
		LevelEnabler: level,
		client:       client,
		encoder: zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey:     "msg",
			NameKey:        "logger",
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		}),
		queue: make(chan *protocol.LogMessageParams, logQueueSize),
		done:  ctx.Done(),
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		core.deliver(ctx)
	}()

	stop = func() {
		cancel()
		wg.Wait()
	}

	return zap.New(zapcore.NewTee(core, fallback)), stop
}

func (c *clientCore) deliver(ctx context.Context) {
	for {
		select {
		case params := <-c.queue:
			_ = c.client.LogMessage(ctx, params)
		case <-ctx.Done():
			return
		}
	}
}

// With implements zapcore.Core.
func (c *clientCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.encoder = c.encoder.Clone()

	for _, f := range fields {
		f.AddTo(clone.encoder)
	}

	return &clone
}

// Check implements zapcore.Core.
func (c *clientCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}

	return ce
}

// Write implements zapcore.Core. Entries are dropped when the queue is
// full or delivery has stopped.
func (c *clientCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}

	params := &protocol.LogMessageParams{
		Type:    messageType(entry.Level),
		Message: strings.TrimSpace(buf.String()),
	}
	buf.Free()

	select {
	case <-c.done:
	case c.queue <- params:
	default:
	}

	return nil
}

// Sync implements zapcore.Core.
func (c *clientCore) Sync() error {
	return nil
}

func messageType(level zapcore.Level) protocol.MessageType {
	switch {
	case level >= zapcore.ErrorLevel:
		return protocol.MessageTypeError
	case level == zapcore.WarnLevel:
		return protocol.MessageTypeWarning
	case level == zapcore.InfoLevel:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}

package logbuffer

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

type core struct {
	zapcore.LevelEnabler
	buf    *Buffer
	fields []zapcore.Field
}

// NewCore returns a zapcore.Core that appends every enabled entry to buf.
// Structured fields are rendered after the message as sorted key=value pairs.
func NewCore(buf *Buffer, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, buf: buf}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &core{LevelEnabler: c.LevelEnabler, buf: c.buf, fields: merged}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.buf.Append(Entry{
		Timestamp: ent.Time.UTC(),
		Level:     ent.Level.String(),
		Message:   render(ent.Message, c.fields, fields),
	})
	return nil
}

func (c *core) Sync() error {
	return nil
}

func render(msg string, groups ...[]zapcore.Field) string {
	enc := zapcore.NewMapObjectEncoder()
	for _, fields := range groups {
		for _, f := range fields {
			f.AddTo(enc)
		}
	}
	if len(enc.Fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, enc.Fields[k])
	}
	return sb.String()
}

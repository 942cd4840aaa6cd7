package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// collectorCore is a zapcore.Core that ships log records to an OTel
// collector over OTLP/HTTP in batches. Export failures are swallowed so
// logging never blocks or breaks the request path.
type collectorCore struct {
	zapcore.LevelEnabler
	endpoint      string
	serviceName   string
	client        *http.Client
	mu            sync.Mutex
	buffer        []logRecord
	batchSize     int
	batchInterval time.Duration
}

type logRecord struct {
	Timestamp         int64       `json:"timeUnixNano"`
	ObservedTimestamp int64       `json:"observedTimeUnixNano"`
	SeverityNumber    int32       `json:"severityNumber"`
	SeverityText      string      `json:"severityText"`
	Body              anyValue    `json:"body"`
	Attributes        []attribute `json:"attributes,omitempty"`
	TraceID           string      `json:"traceId,omitempty"`
	SpanID            string      `json:"spanId,omitempty"`
}

type anyValue map[string]interface{}

type attribute struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

type logsPayload struct {
	ResourceLogs []resourceLogs `json:"resourceLogs"`
}

type resourceLogs struct {
	Resource  resourceInfo `json:"resource"`
	ScopeLogs []scopeLogs  `json:"scopeLogs"`
}

type resourceInfo struct {
	Attributes []attribute `json:"attributes"`
}

type scopeLogs struct {
	Scope      scopeInfo   `json:"scope"`
	LogRecords []logRecord `json:"logRecords"`
}

type scopeInfo struct {
	Name string `json:"name"`
}

func newCollectorCore(cfg *Config, level zapcore.LevelEnabler) zapcore.Core {
	if cfg == nil || cfg.CollectorEndpoint == "" {
		return nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	batchInterval := cfg.BatchInterval
	if batchInterval <= 0 {
		batchInterval = time.Second
	}

	core := &collectorCore{
		LevelEnabler:  level,
		endpoint:      fmt.Sprintf("http://%s/v1/logs", cfg.CollectorEndpoint),
		serviceName:   cfg.ServiceName,
		client:        &http.Client{Timeout: 5 * time.Second},
		buffer:        make([]logRecord, 0, batchSize),
		batchSize:     batchSize,
		batchInterval: batchInterval,
	}

	go core.flushLoop()

	return core
}

// With returns the same core; fields are converted at write time.
func (c *collectorCore) With(fields []zapcore.Field) zapcore.Core {
	return c
}

// Check adds this core to the checked entry when the level is enabled.
func (c *collectorCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write buffers the entry; a full buffer triggers an async flush.
func (c *collectorCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	record := logRecord{
		Timestamp:         ent.Time.UnixNano(),
		ObservedTimestamp: time.Now().UnixNano(),
		SeverityNumber:    severityNumber(ent.Level),
		SeverityText:      ent.Level.String(),
		Body:              anyValue{"stringValue": ent.Message},
	}

	attrs := make([]attribute, 0, len(fields)+1)
	if ent.Caller.Defined {
		attrs = append(attrs, attribute{Key: "caller", Value: anyValue{"stringValue": ent.Caller.String()}})
	}

	for _, f := range fields {
		// trace correlation rides on the record itself, not as attributes
		if f.Key == "trace_id" {
			record.TraceID = f.String
			continue
		}
		if f.Key == "span_id" {
			record.SpanID = f.String
			continue
		}
		if attr, ok := fieldToAttribute(f); ok {
			attrs = append(attrs, attr)
		}
	}
	record.Attributes = attrs

	c.mu.Lock()
	c.buffer = append(c.buffer, record)
	shouldFlush := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if shouldFlush {
		go c.flush()
	}
	return nil
}

// Sync flushes buffered records.
func (c *collectorCore) Sync() error {
	c.flush()
	return nil
}

func (c *collectorCore) flushLoop() {
	ticker := time.NewTicker(c.batchInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.flush()
	}
}

func (c *collectorCore) flush() {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	records := make([]logRecord, len(c.buffer))
	copy(records, c.buffer)
	c.buffer = c.buffer[:0]
	c.mu.Unlock()

	payload := logsPayload{
		ResourceLogs: []resourceLogs{{
			Resource: resourceInfo{
				Attributes: []attribute{
					{Key: "service.name", Value: anyValue{"stringValue": c.serviceName}},
				},
			},
			ScopeLogs: []scopeLogs{{
				Scope:      scopeInfo{Name: "go.uber.org/zap"},
				LogRecords: records,
			}},
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func severityNumber(level zapcore.Level) int32 {
	switch level {
	case zapcore.DebugLevel:
		return 5
	case zapcore.InfoLevel:
		return 9
	case zapcore.WarnLevel:
		return 13
	case zapcore.ErrorLevel:
		return 17
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return 21
	default:
		return 0
	}
}

func fieldToAttribute(f zapcore.Field) (attribute, bool) {
	switch f.Type {
	case zapcore.StringType:
		return attribute{Key: f.Key, Value: anyValue{"stringValue": f.String}}, true
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return attribute{Key: f.Key, Value: anyValue{"intValue": f.Integer}}, true
	case zapcore.Float64Type, zapcore.Float32Type:
		return attribute{Key: f.Key, Value: anyValue{"doubleValue": float64(f.Integer)}}, true
	case zapcore.BoolType:
		return attribute{Key: f.Key, Value: anyValue{"boolValue": f.Integer == 1}}, true
	case zapcore.DurationType:
		return attribute{Key: f.Key, Value: anyValue{"stringValue": time.Duration(f.Integer).String()}}, true
	case zapcore.TimeType:
		return attribute{Key: f.Key, Value: anyValue{"stringValue": time.Unix(0, f.Integer).UTC().Format(time.RFC3339Nano)}}, true
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return attribute{Key: f.Key, Value: anyValue{"stringValue": err.Error()}}, true
		}
		return attribute{}, false
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return attribute{Key: f.Key, Value: anyValue{"stringValue": s.String()}}, true
		}
		return attribute{}, false
	default:
		if f.Interface != nil {
			if data, err := json.Marshal(f.Interface); err == nil {
				return attribute{Key: f.Key, Value: anyValue{"stringValue": string(data)}}, true
			}
		}
		return attribute{}, false
	}
}

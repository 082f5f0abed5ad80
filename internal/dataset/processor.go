// Package dataset turns uploaded files into canonical purchase tables.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/semaphore"

	"custdash/adapters/excel"
	"custdash/domain/core"
	"custdash/domain/purchase"
	"custdash/internal"
	"custdash/internal/errors"
)

// ProcessorConfig holds upload processing limits
type ProcessorConfig struct {
	MaxBytes           int64
	MaxConcurrentLoads int64
	Reader             excel.ReaderConfig
}

// DefaultProcessorConfig returns sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxBytes:           50 * 1024 * 1024,
		MaxConcurrentLoads: 4,
		Reader:             excel.DefaultReaderConfig(),
	}
}

// LoadInfo describes a successfully loaded file.
type LoadInfo struct {
	Filename string
	Format   excel.Format
	Size     int64
	Hash     core.Hash
	Rows     int
	LoadedAt time.Time
	Elapsed  time.Duration
}

// Processor reads and normalizes uploads. Parsing is bounded across all sessions by a
// weighted semaphore; each call is otherwise independent.
type Processor struct {
	config ProcessorConfig
	reader *excel.DataReader
	sem    *semaphore.Weighted
	logger *internal.Logger
}

// NewProcessor creates a new dataset processor
func NewProcessor(config ProcessorConfig, logger *internal.Logger) *Processor {
	if config.MaxConcurrentLoads <= 0 {
		config.MaxConcurrentLoads = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Processor{
		config: config,
		reader: excel.NewDataReader(config.Reader),
		sem:    semaphore.NewWeighted(config.MaxConcurrentLoads),
		logger: logger.With("Dataset"),
	}
}

// Load reads src (named filename) into a canonical table. A failed load returns no table.
func (p *Processor) Load(ctx context.Context, src io.Reader, filename string) (*purchase.Table, LoadInfo, error) {
	info := LoadInfo{Filename: filename}

	format, err := excel.DetectFormat(filename)
	if err != nil {
		return nil, info, errors.InvalidInputf(err, "unsupported file %q", filename)
	}
	info.Format = format

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, info, errors.Busy("too many uploads in progress, try again")
	}
	defer p.sem.Release(1)

	start := time.Now()
	data, err := io.ReadAll(io.LimitReader(src, p.config.MaxBytes+1))
	if err != nil {
		return nil, info, errors.InvalidInputf(err, "failed to read %q", filename)
	}
	if p.config.MaxBytes > 0 && int64(len(data)) > p.config.MaxBytes {
		return nil, info, errors.InvalidInput(fmt.Sprintf("file exceeds the %.0f MB limit", float64(p.config.MaxBytes)/(1024*1024)))
	}
	info.Size = int64(len(data))
	info.Hash = core.NewHash(data)

	raw, err := p.reader.Read(bytes.NewReader(data), format)
	if err != nil {
		p.logger.Warn("read %s failed: %v", filename, err)
		return nil, info, errors.InvalidInputf(err, "could not read %q", filename)
	}

	table, err := Normalize(raw)
	if err != nil {
		p.logger.Warn("normalize %s failed: %v", filename, err)
		return nil, info, err
	}

	info.Rows = table.Len()
	info.LoadedAt = time.Now()
	info.Elapsed = time.Since(start)
	p.logger.Info("loaded %s (%s, %d rows, %s) in %s", filename, format, info.Rows, info.Hash.Short(), info.Elapsed)
	return table, info, nil
}

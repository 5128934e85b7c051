package jsonl

import (
	"errors"
	"path/filepath"

	"spread-signal-monitor/internal/config"
	"spread-signal-monitor/internal/core/model"
)

// 输出文件名
const (
	DecisionsFile  = "decisions.jsonl"
	SnapshotsFile  = "snapshots.jsonl"
	MetricsFile    = "metrics.jsonl"
	ConnectorsFile = "connectors.jsonl"
)

// Sink 聚合器输出：决策、价差快照与周期指标
// 未启用的输出对应写入器为 nil，写入时直接忽略。
type Sink struct {
	decisions *Writer
	snapshots *Writer
	metrics   *Writer
}

// NewSink 按配置创建输出
func NewSink(cfg config.OutputConfig) (*Sink, error) {
	s := &Sink{}
	open := func(enabled bool, name string) (*Writer, error) {
		if !enabled {
			return nil, nil
		}
		return NewWriter(filepath.Join(cfg.Dir, name), cfg.BufferSize)
	}

	var err error
	if s.decisions, err = open(cfg.DecisionsEnabled, DecisionsFile); err != nil {
		return nil, err
	}
	if s.snapshots, err = open(cfg.SnapshotsEnabled, SnapshotsFile); err != nil {
		_ = s.Close()
		return nil, err
	}
	if s.metrics, err = open(cfg.MetricsEnabled, MetricsFile); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// WriteDecision 写入一条决策
func (s *Sink) WriteDecision(rec model.DecisionRecord) error {
	return s.decisions.Write(rec)
}

// WriteSnapshot 写入一条价差快照
func (s *Sink) WriteSnapshot(snap model.SpreadSnapshot) error {
	return s.snapshots.Write(snap)
}

// WriteMetrics 写入一条指标记录
func (s *Sink) WriteMetrics(v any) error {
	return s.metrics.Write(v)
}

// EncodeErrors 各输出因编码失败丢弃的记录总数
func (s *Sink) EncodeErrors() int64 {
	return s.decisions.EncodeErrors() + s.snapshots.EncodeErrors() + s.metrics.EncodeErrors()
}

// Flush 刷新所有输出
func (s *Sink) Flush() error {
	return errors.Join(s.decisions.Flush(), s.snapshots.Flush(), s.metrics.Flush())
}

// Close 关闭所有输出
func (s *Sink) Close() error {
	return errors.Join(s.decisions.Close(), s.snapshots.Close(), s.metrics.Close())
}

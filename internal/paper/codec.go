package paper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fyerfyer/scholar-assistant/internal/section"
	"go.yaml.in/yaml/v3"
)

// Format 快照序列化格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode 按格式序列化快照
func Encode(s Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(s, "", "    ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("failed to encode yaml snapshot: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported snapshot format: %s", format)
}

// Decode 反序列化快照并校验论文内容
func Decode(data []byte, format Format) (Snapshot, error) {
	var s Snapshot
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &s); err != nil {
			return Snapshot{}, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Snapshot{}, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("unsupported snapshot format: %s", format)
	}
	if s.Sections == nil {
		s.Sections = []*section.Section{}
	}
	if s.Status == "" {
		s.Status = StatusIdle
	}
	if err := s.Paper.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// FormatFromExt 根据文件扩展名推断格式
func FormatFromExt(ext string) (Format, bool) {
	switch ext {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

package paper

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// SummaryMap 章节号到章节总结的映射，"0" 表示摘要
type SummaryMap map[string]string

// Lookup 查找章节总结
func (m SummaryMap) Lookup(label string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[label]
	return v, ok
}

// Labels 按章节号数值顺序返回所有键
func (m SummaryMap) Labels() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessLabel(keys[i], keys[j])
	})
	return keys
}

func lessLabel(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA != nil || errB != nil {
			if pa[i] != pb[i] {
				return pa[i] < pb[i]
			}
			continue
		}
		if na != nb {
			return na < nb
		}
	}
	return len(pa) < len(pb)
}

// Label 模型返回的章节号，可能是字符串也可能是数字
type Label string

// UnmarshalJSON 同时接受 "3.1" 与 3
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(strings.TrimSpace(s))
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Label(n.String())
	return nil
}

// SectionSummary 模型返回的递归章节总结
type SectionSummary struct {
	SectionNumber  Label            `json:"section_number"`
	ContentSummary string           `json:"content_summary"`
	Sections       []SectionSummary `json:"sections"`
}

// Flatten 将递归总结展开为章节号到总结的映射
func Flatten(summaries []SectionSummary) SummaryMap {
	out := make(SummaryMap)
	var walk func([]SectionSummary)
	walk = func(items []SectionSummary) {
		for _, s := range items {
			if s.SectionNumber != "" {
				out[string(s.SectionNumber)] = s.ContentSummary
			}
			walk(s.Sections)
		}
	}
	walk(summaries)
	return out
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
)

// 摘要与引言作为两个合成章节排在正文之前
const (
	abstractNumber     = "1"
	introductionNumber = "2"
)

// SummaryPayload 整篇总结请求体
type SummaryPayload struct {
	PaperTitle string             `json:"paper_title"`
	Body       []section.Numbered `json:"body"`
}

// BuildSummaryPayload 拼接摘要、引言和编号后的正文
// 摘要和引言使用未处理的原文，即使为空也占用编号1和2
func BuildSummaryPayload(title, abstract, introduction string, body []*section.Section, offset int) SummaryPayload {
	numbered := []section.Numbered{
		{Title: "abstract", Text: abstract, Sections: []section.Numbered{}, SectionNumber: abstractNumber},
		{Title: "introduction", Text: introduction, Sections: []section.Numbered{}, SectionNumber: introductionNumber},
	}
	numbered = append(numbered, section.Number(section.Clone(body), offset)...)
	return SummaryPayload{PaperTitle: title, Body: numbered}
}

// Encode 以4空格缩进序列化请求体
func (p SummaryPayload) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// ShiftLabel 章节号首段减1，其余部分不变
// 首段无法解析或小于1时原样返回
func ShiftLabel(label string) string {
	head, rest, hasRest := strings.Cut(label, ".")
	n, err := strconv.Atoi(head)
	if err != nil || n < 1 {
		return label
	}
	shifted := strconv.Itoa(n - 1)
	if hasRest {
		return shifted + "." + rest
	}
	return shifted
}

// CorrectKeys 将总结中的章节号还原为阅读视图使用的编号，"0" 对应摘要
func CorrectKeys(raw paper.SummaryMap) paper.SummaryMap {
	out := make(paper.SummaryMap, len(raw))
	for k, v := range raw {
		out[ShiftLabel(k)] = v
	}
	return out
}

// applySummary 只写入回复中实际存在的部分
func applySummary(result *paper.Result, reply *transform.SummaryReply) {
	if reply == nil {
		return
	}
	if reply.Summary != nil {
		result.Summary = *reply.Summary
	}
	if reply.HasSectionSummaries {
		result.SectionSummaries = CorrectKeys(paper.Flatten(reply.SectionSummaries))
	}
	if reply.Assessment != nil {
		assessment := *reply.Assessment
		result.Assessment = &assessment
	}
}

package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftLabel(t *testing.T) {
	tests := map[string]string{
		"1":      "0",
		"2":      "1",
		"3":      "2",
		"3.1":    "2.1",
		"12.3.4": "11.3.4",
		"0":      "0",
		"abc":    "abc",
		"":       "",
		"x.1":    "x.1",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShiftLabel(in), in)
	}
}

func TestCorrectKeys(t *testing.T) {
	raw := paper.SummaryMap{"1": "a", "2": "b", "3": "c", "3.1": "d"}
	assert.Equal(t, paper.SummaryMap{"0": "a", "1": "b", "2": "c", "2.1": "d"}, CorrectKeys(raw))
}

func TestBuildSummaryPayload(t *testing.T) {
	tree := sampleTree()
	payload := BuildSummaryPayload("Title", "", "intro", tree, section.DefaultBodyOffset)

	assert.Equal(t, "Title", payload.PaperTitle)
	require.Len(t, payload.Body, 4)
	assert.Equal(t, "abstract", payload.Body[0].Title)
	assert.Equal(t, "1", payload.Body[0].SectionNumber, "空摘要仍占用编号1")
	assert.Equal(t, "introduction", payload.Body[1].Title)
	assert.Equal(t, "intro", payload.Body[1].Text)
	assert.Equal(t, []string{"1", "2", "3", "3.1", "4"}, section.Labels(payload.Body))

	// 编号时不修改调用方的树
	assert.Equal(t, "Method", tree[0].Title)
}

func TestSummaryPayloadEncode(t *testing.T) {
	encoded, err := BuildSummaryPayload("A <b> & c", "abs", "intro", sampleTree(), 3).Encode()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "{\n    \"paper_title\": \"A <b> & c\""))
	assert.NotContains(t, encoded, `"id"`)

	var decoded struct {
		PaperTitle string `json:"paper_title"`
		Body       []struct {
			Title         string `json:"title"`
			SectionNumber string `json:"section_number"`
		} `json:"body"`
	}
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Len(t, decoded.Body, 4)
	assert.Equal(t, "4", decoded.Body[3].SectionNumber)
}

func TestApplySummaryOnlyPresentParts(t *testing.T) {
	result := &paper.Result{Summary: "previous"}
	applySummary(result, &transform.SummaryReply{})
	assert.Equal(t, "previous", result.Summary)
	assert.Nil(t, result.SectionSummaries)
	assert.Nil(t, result.Assessment)

	applySummary(result, &transform.SummaryReply{Failed: true})
	assert.Equal(t, "previous", result.Summary)

	summary := "new"
	applySummary(result, &transform.SummaryReply{
		Summary:             &summary,
		HasSectionSummaries: true,
		SectionSummaries:    []paper.SectionSummary{{SectionNumber: "3", ContentSummary: "x"}},
	})
	assert.Equal(t, "new", result.Summary)
	assert.Equal(t, paper.SummaryMap{"2": "x"}, result.SectionSummaries)
	assert.Nil(t, result.Assessment)
}

package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/fyerfyer/scholar-assistant/internal/paper"
	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/fyerfyer/scholar-assistant/internal/transform"
	"github.com/sirupsen/logrus"
)

type call struct {
	mode  transform.Mode
	input string
}

// fakeTransformer 确定性的转换器，记录所有调用
type fakeTransformer struct {
	mu    sync.Mutex
	calls []call
	fn    func(mode transform.Mode, input string) transform.Result
}

func (f *fakeTransformer) Transform(_ context.Context, mode transform.Mode, input string) transform.Result {
	f.mu.Lock()
	f.calls = append(f.calls, call{mode: mode, input: input})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(mode, input)
	}
	return deterministic(mode, input)
}

func (f *fakeTransformer) callsFor(mode transform.Mode) []string {
	var out []string
	for _, c := range f.calls {
		if c.mode == mode {
			out = append(out, c.input)
		}
	}
	return out
}

func deterministic(mode transform.Mode, input string) transform.Result {
	res := transform.Result{Mode: mode, Attempts: 1}
	switch mode {
	case transform.ModeFormat:
		res.Text = "fmt(" + input + ")"
	case transform.ModeFormatTranslate:
		res.Text, res.Target = "en("+input+")", "zh("+input+")"
	case transform.ModeTranslate:
		res.Text = "zh:" + input
	case transform.ModePolishEnglish:
		res.Text = "en-polished:" + input
	case transform.ModePolishChinese:
		res.Text = "zh-polished:" + input
	case transform.ModeSummarize:
		summary := "overall"
		res.Summary = &transform.SummaryReply{
			Summary: &summary,
			SectionSummaries: []paper.SectionSummary{
				{SectionNumber: "1", ContentSummary: "abstract summary"},
				{SectionNumber: "2", ContentSummary: "introduction summary"},
				{SectionNumber: "3", ContentSummary: "method summary", Sections: []paper.SectionSummary{
					{SectionNumber: "3.1", ContentSummary: "model summary"},
				}},
			},
			HasSectionSummaries: true,
			Assessment:          &paper.Assessment{ResearchTopic: "topic"},
		}
	}
	return res
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// sampleTree Method[Model] + Experiments
func sampleTree() []*section.Section {
	method := section.New("Method", "m-text")
	method.Children = append(method.Children, section.New("Model", "model-text"))
	return []*section.Section{method, section.New("Experiments", "exp-text")}
}

func samplePaper() paper.Paper {
	return paper.Paper{
		Title:        "A Paper",
		Authors:      "Someone",
		Institutes:   "Some Lab",
		Keywords:     "k1, k2",
		Abstract:     "raw abstract",
		Introduction: "raw introduction",
		Sections:     sampleTree(),
	}
}

func failWhen(substr string) func(transform.Mode, string) transform.Result {
	return func(mode transform.Mode, input string) transform.Result {
		if strings.Contains(input, substr) {
			return transform.Result{Mode: mode, Text: input, Target: input, Fallback: true, Attempts: 3}
		}
		return deterministic(mode, input)
	}
}

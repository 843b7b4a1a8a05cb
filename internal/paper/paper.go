package paper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyerfyer/scholar-assistant/internal/section"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidPaper 论文内容不合法
var ErrInvalidPaper = errors.New("invalid paper")

// Language 论文语言
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// ParseLanguage 解析语言参数，空值视为英文
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "", LanguageEnglish:
		return LanguageEnglish, nil
	case LanguageChinese:
		return LanguageChinese, nil
	}
	return "", fmt.Errorf("unsupported language: %q", s)
}

// Mode 处理模式，一次处理只能选其一
type Mode string

const (
	// ModeAnalyze 格式整理(可选翻译)并总结评审
	ModeAnalyze Mode = "analyze"
	// ModePolish 润色
	ModePolish Mode = "polish"
)

// Status 单次处理的状态
type Status string

const (
	StatusIdle             Status = "idle"
	StatusRunning          Status = "running"
	StatusDone             Status = "done"
	StatusDoneWithFallback Status = "done_with_fallback"
)

// Paper 用户录入的论文
type Paper struct {
	Title        string             `json:"title" yaml:"title" validate:"max=1000"`
	Authors      string             `json:"authors" yaml:"authors"`
	Institutes   string             `json:"institutes" yaml:"institutes"`
	Keywords     string             `json:"keywords" yaml:"keywords"`
	Abstract     string             `json:"abstract" yaml:"abstract"`
	Introduction string             `json:"introduction" yaml:"introduction"`
	Sections     []*section.Section `json:"sections" yaml:"sections" validate:"dive,required"`
}

// New 创建只有一个空白正文章节的论文
func New() Paper {
	return Paper{Sections: section.NewTree()}
}

// Clone 深拷贝论文
func (p Paper) Clone() Paper {
	c := p
	c.Sections = section.Clone(p.Sections)
	return c
}

var validate = validator.New()

// Validate 校验论文字段和章节ID
func (p Paper) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPaper, err)
	}
	seen := make(map[string]struct{})
	return section.Walk(p.Sections, func(path section.Path, s *section.Section) error {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate section id %s at %s", ErrInvalidPaper, s.ID, path)
		}
		seen[s.ID] = struct{}{}
		return nil
	})
}

// Assessment 整体评审
type Assessment struct {
	ResearchTopic      string `json:"research_topic" yaml:"research_topic"`
	ResearchOutcomes   string `json:"research_outcomes" yaml:"research_outcomes"`
	DatasetDescription string `json:"dataset_description" yaml:"dataset_description"`
	Methodology        string `json:"methodology" yaml:"methodology"`
	Innovations        string `json:"innovations" yaml:"innovations"`
	PaperStructure     string `json:"paper_structure" yaml:"paper_structure"`
	Conclusions        string `json:"conclusions" yaml:"conclusions"`
}

// Result 一次处理的全部产出
type Result struct {
	Mode           Mode     `json:"mode,omitempty" yaml:"mode,omitempty"`
	Status         Status   `json:"status" yaml:"status"`
	Translated     bool     `json:"translate_flag" yaml:"translate_flag"`
	PolishLanguage Language `json:"polish_language,omitempty" yaml:"polish_language,omitempty"`

	ZhTitle      string `json:"zh_title,omitempty" yaml:"zh_title,omitempty"`
	ZhInstitutes string `json:"zh_institutes,omitempty" yaml:"zh_institutes,omitempty"`
	ZhKeywords   string `json:"zh_keywords,omitempty" yaml:"zh_keywords,omitempty"`

	AbstractProcessed       string             `json:"abstract_processed,omitempty" yaml:"abstract_processed,omitempty"`
	ZhAbstractProcessed     string             `json:"zh_abstract_processed,omitempty" yaml:"zh_abstract_processed,omitempty"`
	IntroductionProcessed   string             `json:"introduction_processed,omitempty" yaml:"introduction_processed,omitempty"`
	ZhIntroductionProcessed string             `json:"zh_introduction_processed,omitempty" yaml:"zh_introduction_processed,omitempty"`
	SectionsProcessed       []*section.Section `json:"sections_processed,omitempty" yaml:"sections_processed,omitempty"`
	ZhSectionsProcessed     []*section.Section `json:"zh_sections_processed,omitempty" yaml:"zh_sections_processed,omitempty"`

	Summary          string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	SectionSummaries SummaryMap  `json:"section_summaries,omitempty" yaml:"section_summaries,omitempty"`
	Assessment       *Assessment `json:"overall_assessment,omitempty" yaml:"overall_assessment,omitempty"`

	PolishedTitle        string             `json:"polished_title,omitempty" yaml:"polished_title,omitempty"`
	PolishedAbstract     string             `json:"polished_abstract,omitempty" yaml:"polished_abstract,omitempty"`
	PolishedIntroduction string             `json:"polished_introduction,omitempty" yaml:"polished_introduction,omitempty"`
	PolishedSections     []*section.Section `json:"polished_sections,omitempty" yaml:"polished_sections,omitempty"`

	// Fallbacks 用回退值兜底的字段数
	Fallbacks  int        `json:"fallbacks" yaml:"fallbacks"`
	StartedAt  *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Snapshot 会话快照，论文原文与处理结果平铺在同一层
type Snapshot struct {
	Paper  `yaml:",inline"`
	Result `yaml:",inline"`
}

// NewSnapshot 组合论文和结果，result为nil时状态为idle
func NewSnapshot(p Paper, result *Result) Snapshot {
	s := Snapshot{Paper: p}
	if result != nil {
		s.Result = *result
	}
	if s.Status == "" {
		s.Status = StatusIdle
	}
	return s
}

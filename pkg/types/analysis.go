// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Insight is one observation about a paper's contribution or impact.
type Insight struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	// Category groups insights (e.g. "impact", "methodology", "practical").
	Category string `json:"category" yaml:"category"`
}

// Concept explains a key idea a reader needs to follow the paper.
type Concept struct {
	Name        string `json:"name" yaml:"name"`
	Explanation string `json:"explanation" yaml:"explanation"`

	// Importance is one of "high", "medium", "low".
	Importance string `json:"importance" yaml:"importance"`
}

// DifficultyLevel grades how hard a paper is to understand and reproduce.
type DifficultyLevel string

const (
	LevelBeginner     DifficultyLevel = "beginner"
	LevelIntermediate DifficultyLevel = "intermediate"
	LevelAdvanced     DifficultyLevel = "advanced"
	LevelExpert       DifficultyLevel = "expert"
)

// Valid reports whether l is one of the known levels.
func (l DifficultyLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

// DifficultyAssessment grades a paper's technical difficulty.
type DifficultyAssessment struct {
	Level DifficultyLevel `json:"level" yaml:"level"`

	// Score is between 1 and 10.
	Score int `json:"score" yaml:"score"`

	TechnicalSkills []string `json:"technical_skills" yaml:"technical_skills"`
	Prerequisites   []string `json:"prerequisites" yaml:"prerequisites"`
	EstimatedTime   string   `json:"estimated_time" yaml:"estimated_time"`
}

// CodeSnippet references code a reader can use to start an implementation.
type CodeSnippet struct {
	Title       string `json:"title" yaml:"title"`
	Language    string `json:"language" yaml:"language"`
	Description string `json:"description" yaml:"description"`
	Code        string `json:"code" yaml:"code"`
}

// ImplementationStep is one ordered step toward reproducing the paper.
type ImplementationStep struct {
	Step        int    `json:"step" yaml:"step"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

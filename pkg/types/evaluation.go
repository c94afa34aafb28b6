package types

import "github.com/llmsresearch/paperbanana/pkg/errors"

// Winner identifies which image won a comparison dimension.
type Winner string

const (
	// WinnerGenerated means the model-generated image won.
	WinnerGenerated Winner = "generated"

	// WinnerReference means the human-drawn reference won.
	WinnerReference Winner = "reference"

	// WinnerTie means neither image was clearly better.
	WinnerTie Winner = "tie"
)

// ParseWinner converts a judge response string into a Winner.
func ParseWinner(s string) (Winner, error) {
	switch Winner(s) {
	case WinnerGenerated, WinnerReference, WinnerTie:
		return Winner(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid winner: %q (must be 'generated', 'reference', or 'tie')", s)
}

// Dimension names in aggregation priority order.
const (
	DimensionFaithfulness = "faithfulness"
	DimensionConciseness  = "conciseness"
	DimensionReadability  = "readability"
	DimensionAesthetics   = "aesthetics"
)

// DimensionScore is one dimension's verdict from the evaluation judge.
type DimensionScore struct {
	Winner    Winner `json:"winner"`
	Reasoning string `json:"reasoning"`
}

// EvaluationScores aggregates the four comparison dimensions into one
// ranked verdict. Dimensions are ordered by priority: faithfulness first,
// then conciseness, readability, and aesthetics.
type EvaluationScores struct {
	Faithfulness DimensionScore `json:"faithfulness"`
	Conciseness  DimensionScore `json:"conciseness"`
	Readability  DimensionScore `json:"readability"`
	Aesthetics   DimensionScore `json:"aesthetics"`

	OverallWinner Winner `json:"overall_winner"`
	OverallScore  int    `json:"overall_score"`
}

// dimensionWeights assigns strictly dominating weights to the priority
// order: a win on any dimension outweighs wins on all lower dimensions
// combined (8 > 4+2+1).
var dimensionWeights = [4]int{8, 4, 2, 1}

// Aggregate computes OverallWinner and OverallScore from the four
// dimension verdicts using hierarchical tie-breaking: the highest-priority
// dimension with a clear winner decides the overall verdict; lower
// dimensions only matter when every dimension above them tied.
func (s *EvaluationScores) Aggregate() {
	ordered := [4]DimensionScore{s.Faithfulness, s.Conciseness, s.Readability, s.Aesthetics}

	s.OverallWinner = WinnerTie
	for _, d := range ordered {
		if d.Winner != WinnerTie {
			s.OverallWinner = d.Winner
			break
		}
	}

	score := 0
	for i, d := range ordered {
		switch d.Winner {
		case WinnerGenerated:
			score += dimensionWeights[i]
		case WinnerReference:
			score -= dimensionWeights[i]
		}
	}
	s.OverallScore = score
}

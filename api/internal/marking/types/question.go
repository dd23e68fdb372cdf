package types

// QuestionType is the closed set of question tags the engine knows how to grade.
type QuestionType string

const (
	// client-side marking
	MCQ               QuestionType = "mcq"
	TrueFalse         QuestionType = "true_false"
	MCQMultiple       QuestionType = "mcq_multiple"
	MatchPair         QuestionType = "match_pair"
	FillInTheGapsText QuestionType = "fill_in_the_gaps_text"
	Spot              QuestionType = "spot"
	FixSentence       QuestionType = "fix_sentence"
	Reorder           QuestionType = "reorder"
	Group             QuestionType = "group"
	Number            QuestionType = "number"

	// model-assisted marking
	Calculate   QuestionType = "calculate"
	Compare     QuestionType = "compare"
	Define      QuestionType = "define"
	Describe    QuestionType = "describe"
	Explain     QuestionType = "explain"
	LongAnswer  QuestionType = "long_answer"
	State       QuestionType = "state"
	ShortAnswer QuestionType = "short_answer"
	Write       QuestionType = "write"
)

// Family says which grader owns a question type.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyClient
	FamilyModel
)

func (f Family) String() string {
	switch f {
	case FamilyClient:
		return "client"
	case FamilyModel:
		return "model"
	default:
		return "unknown"
	}
}

// ClientTypes lists every type graded deterministically.
var ClientTypes = []QuestionType{
	MCQ, TrueFalse, MCQMultiple, MatchPair, FillInTheGapsText,
	Spot, FixSentence, Reorder, Group, Number,
}

// ModelTypes lists every type graded by the generative marker.
var ModelTypes = []QuestionType{
	Calculate, Compare, Define, Describe, Explain,
	LongAnswer, State, ShortAnswer, Write,
}

// Family is a pure lookup; anything outside the two sets is FamilyUnknown.
func (t QuestionType) Family() Family {
	switch t {
	case MCQ, TrueFalse, MCQMultiple, MatchPair, FillInTheGapsText,
		Spot, FixSentence, Reorder, Group, Number:
		return FamilyClient
	case Calculate, Compare, Define, Describe, Explain,
		LongAnswer, State, ShortAnswer, Write:
		return FamilyModel
	default:
		return FamilyUnknown
	}
}

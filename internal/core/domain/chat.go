package domain

// DefaultToneValue is used for any tone slider the caller leaves unset.
const DefaultToneValue = 0.5

// Tone steers the style of a composed reply without altering its facts.
// Each slider is a real number in [0, 1].
type Tone struct {
	Formality float64 `json:"formality"`
	Detail    float64 `json:"detail"`
	Humor     float64 `json:"humor"`
}

// DefaultTone returns the neutral tone.
func DefaultTone() Tone {
	return Tone{
		Formality: DefaultToneValue,
		Detail:    DefaultToneValue,
		Humor:     DefaultToneValue,
	}
}

// Clamp returns a copy with every slider forced into [0, 1].
func (t Tone) Clamp() Tone {
	return Tone{
		Formality: clampUnit(t.Formality),
		Detail:    clampUnit(t.Detail),
		Humor:     clampUnit(t.Humor),
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v != v: // NaN
		return DefaultToneValue
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ChatRequest is a live question asked of a profile's reconstruction.
type ChatRequest struct {
	ProfileID int64
	Message   string
	Tone      Tone
}

// ReplyMode records which composer path produced a reply.
type ReplyMode string

// Composer paths.
const (
	// ReplyGrounded is a synthesis over retrieved excerpts.
	ReplyGrounded ReplyMode = "grounded"

	// ReplyUncertain is the canned reply used when synthesis produced nothing usable.
	ReplyUncertain ReplyMode = "uncertain"

	// ReplyFallback is a lexical-match reply built without the generative backend.
	ReplyFallback ReplyMode = "fallback"
)

// Citation points at an answer used as grounding for a reply.
type Citation struct {
	Rank     int     `json:"rank"`
	AnswerID int64   `json:"answer_id"`
	Question string  `json:"question"`
	Score    float64 `json:"score"`
}

// Reply is a composed response.
type Reply struct {
	Text      string     `json:"reply"`
	Mode      ReplyMode  `json:"mode"`
	Citations []Citation `json:"citations"`
}

// ToneFrom builds a Tone from optional slider values, defaulting unset ones.
func ToneFrom(formality, detail, humor *float64) Tone {
	t := DefaultTone()
	if formality != nil {
		t.Formality = *formality
	}
	if detail != nil {
		t.Detail = *detail
	}
	if humor != nil {
		t.Humor = *humor
	}
	return t.Clamp()
}

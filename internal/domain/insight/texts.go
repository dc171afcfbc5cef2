package insight

// Texts holds the fixed bilingual strings used when the model gives us
// nothing usable. Loaded from configuration; DefaultTexts fills the gaps.
type Texts struct {
	// SummaryPlaceholder replaces a missing English or Roman Urdu summary.
	SummaryPlaceholder string `yaml:"summaryPlaceholder"`
	// FallbackUrduSummary is the Roman Urdu summary of a degraded result.
	FallbackUrduSummary string `yaml:"fallbackUrduSummary"`
	// FallbackQuestions are the doctor questions of a degraded result.
	FallbackQuestions []string `yaml:"fallbackQuestions"`
	Disclaimer        string   `yaml:"disclaimer"`
}

const (
	DefaultSummaryPlaceholder  = "Your record was saved, but no AI summary is available for it yet. / Aapka record save ho gaya hai, lekin iski AI summary abhi dastiyab nahi hai."
	DefaultFallbackUrduSummary = "Details are given in English above. Please consult your doctor. / Tafseel English mein upar di gayi hai. Doctor se zaroor mashwara karein."
	DefaultDisclaimer          = "This AI summary is for understanding only, not for medical advice. Always consult your doctor. / Yeh AI sirf samajhne ke liye hai, ilaaj ke liye nahi."
)

// DefaultFallbackQuestions are asked when the model answer could not be parsed.
var DefaultFallbackQuestions = []string{
	"What do these results mean for my health? / In nataij ka meri sehat ke liye kya matlab hai?",
	"Do I need any further tests or follow-up? / Kya mujhe mazeed tests ya follow-up ki zaroorat hai?",
	"Should I change my diet, lifestyle or medicines? / Kya mujhe apni khuraak, tarz-e-zindagi ya dawaiyan badalni chahiye?",
}

// DefaultTexts returns the built-in bilingual strings.
func DefaultTexts() Texts {
	return Texts{
		SummaryPlaceholder:  DefaultSummaryPlaceholder,
		FallbackUrduSummary: DefaultFallbackUrduSummary,
		FallbackQuestions:   append([]string(nil), DefaultFallbackQuestions...),
		Disclaimer:          DefaultDisclaimer,
	}
}

// WithDefaults returns t with every empty field taken from DefaultTexts.
func (t Texts) WithDefaults() Texts {
	d := DefaultTexts()
	if t.SummaryPlaceholder == "" {
		t.SummaryPlaceholder = d.SummaryPlaceholder
	}
	if t.FallbackUrduSummary == "" {
		t.FallbackUrduSummary = d.FallbackUrduSummary
	}
	if len(t.FallbackQuestions) == 0 {
		t.FallbackQuestions = d.FallbackQuestions
	}
	if t.Disclaimer == "" {
		t.Disclaimer = d.Disclaimer
	}
	return t
}

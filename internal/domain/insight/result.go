package insight

// Status of an abnormal value as reported by the model. Values outside this
// set are kept as-is.
type Status string

const (
	StatusHigh     Status = "high"
	StatusLow      Status = "low"
	StatusCritical Status = "critical"
)

// AbnormalValue is one out-of-range parameter found in a report or reading.
type AbnormalValue struct {
	Parameter   string `json:"parameter"`
	Value       string `json:"value"`
	NormalRange string `json:"normalRange"`
	Status      Status `json:"status"`
}

// Result is the bilingual interpretation attached to a record.
// Sequence fields are never nil once produced by Normalizer or Fallback.
type Result struct {
	EnglishSummary   string          `json:"englishSummary"`
	RomanUrduSummary string          `json:"romanUrduSummary"`
	AbnormalValues   []AbnormalValue `json:"abnormalValues"`
	DoctorQuestions  []string        `json:"doctorQuestions"`
	FoodsToAvoid     []string        `json:"foodsToAvoid"`
	RecommendedFoods []string        `json:"recommendedFoods"`
	HomeRemedies     []string        `json:"homeRemedies"`
	Disclaimer       string          `json:"disclaimer"`
}

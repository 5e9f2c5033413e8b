package domain

// SpeciesPrediction is the top-1 output of the species classifier.
type SpeciesPrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DefaultSpeciesVocabulary is the closed label set of the plant-types model,
// in the order of the model's output logits.
var DefaultSpeciesVocabulary = []string{
	"aloevera", "banana", "bilimbi", "cantaloupe", "cassava", "coconut", "corn", "cucumber", "curcuma",
	"eggplant", "galangal", "ginger", "guava", "kale", "longbeans", "mango", "melon", "orange", "paddy",
	"papaya", "peper chili", "pineapple", "pomelo", "shallot", "soybeans", "spinach", "sweet potatoes",
	"tobacco", "waterapple", "watermelon",
}

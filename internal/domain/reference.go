package domain

// ScaleEntry defines the meaning of one value on a 1-5 scoring scale.
type ScaleEntry struct {
	Score       int    `json:"score"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Scales are the four fixed reference tables the classifier embeds in
// every prompt. Loaded once at startup from static CSV files and treated
// as read-only configuration.
type Scales struct {
	Impact          []ScaleEntry `json:"impact"`
	Urgency         []ScaleEntry `json:"urgency"`
	Frequency       []ScaleEntry `json:"frequency"`
	Controllability []ScaleEntry `json:"controllability"`
}

// RiskCategory is one tier of the reference risk classification taxonomy.
type RiskCategory struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RiskSubcategory is one universal subcategory pattern (ER-01..SR-04)
// from the reference taxonomy.
type RiskSubcategory struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Patterns string `json:"patterns"`
}

// ReferenceTables bundles all static taxonomy data loaded at startup.
type ReferenceTables struct {
	Categories    []RiskCategory
	Subcategories []RiskSubcategory
	Scales        Scales
}

package domain

// Letter is the current published content for a letter date. Every edit first
// snapshots the previous current record into an immutable version row.
type Letter struct {
	Date         string `dynamodbav:"date" json:"date"`
	Title        string `dynamodbav:"title" json:"title"`
	Content      string `dynamodbav:"content" json:"content"`
	UpdatedBy    string `dynamodbav:"updatedBy" json:"updatedBy"`
	UpdatedAt    string `dynamodbav:"updatedAt" json:"updatedAt"`
	VersionCount int    `dynamodbav:"versionCount" json:"versionCount"`
	CreatedAt    string `dynamodbav:"createdAt" json:"createdAt"`
}

// LetterVersion is a frozen prior revision. Versions are never edited or
// deleted once written.
type LetterVersion struct {
	Date        string `dynamodbav:"date" json:"date"`
	Revision    int    `dynamodbav:"revision" json:"revision"`
	VersionedAt string `dynamodbav:"versionedAt" json:"versionedAt"`
	Title       string `dynamodbav:"title" json:"title"`
	Content     string `dynamodbav:"content" json:"content"`
	UpdatedBy   string `dynamodbav:"updatedBy" json:"updatedBy"`
	UpdatedAt   string `dynamodbav:"updatedAt" json:"updatedAt"`
}

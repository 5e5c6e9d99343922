package mockdata

import "strings"

// Answer returns a canned CFO reply chosen by keywords in question.
func Answer(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "cash") || strings.Contains(q, "runway"):
		return "Based on your current financial data, I can provide some insights: " +
			"Your cash runway looks healthy at 18 months, but monitor your burn rate closely."
	case strings.Contains(q, "risk"):
		return "Analyzing your financial position: " +
			"I see moderate risks in customer concentration. Consider diversifying your client base."
	case strings.Contains(q, "growth"):
		return "From a CFO perspective: " +
			"There are opportunities to optimize cash flow timing and explore new revenue streams."
	}
	return "From a CFO perspective: " +
		"Focus on key metrics like runway, burn rate, and customer acquisition costs."
}

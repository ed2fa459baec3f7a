package api

// FallbackQuickActions is shown when /api/quick_actions is unreachable.
func FallbackQuickActions() []QuickAction {
	return []QuickAction{
		{Icon: "📅", Text: "Exam Schedule", Color: "#3B82F6", Category: "academics"},
		{Icon: "💰", Text: "Pay Fees", Color: "#10B981", Category: "administration"},
		{Icon: "📚", Text: "Library", Color: "#8B5CF6", Category: "campus"},
		{Icon: "🏠", Text: "Hostel", Color: "#F59E0B", Category: "campus"},
		{Icon: "🚌", Text: "Transport", Color: "#EF4444", Category: "campus"},
		{Icon: "📄", Text: "Documents", Color: "#6366F1", Category: "administration"},
		{Icon: "🎓", Text: "Courses", Color: "#EC4899", Category: "academics"},
		{Icon: "📊", Text: "Results", Color: "#14B8A6", Category: "academics"},
	}
}

// FallbackSuggestions is shown when /api/suggestions is unreachable, whatever
// the category.
func FallbackSuggestions() []string {
	return []string{
		"exam schedule for next semester",
		"how to check attendance percentage",
		"fee payment deadline this month",
		"library opening hours today",
		"hostel admission process",
		"bus schedule for college",
		"course registration dates",
		"when are results declared",
	}
}

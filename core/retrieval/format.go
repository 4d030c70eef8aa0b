package retrieval

import "strings"

// FormatSkills renders retrieved skills as a markdown block for prompt
// injection. Returns "" for an empty result set so callers can skip the
// section entirely.
func FormatSkills(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Dynamic Skills (Contextually Loaded)\n")
	b.WriteString("The following specialized skills have been loaded to help with the request:\n\n")
	for _, result := range results {
		writeEntry(&b, "Skill", result)
	}
	return b.String()
}

// FormatImplants renders retrieved implants as a markdown block.
func FormatImplants(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Dynamic Implants (Contextually Loaded)\n")
	b.WriteString("The following cognitive implants have been loaded to augment reasoning:\n\n")
	for _, result := range results {
		writeEntry(&b, "Implant", result)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, kind string, result Result) {
	desc := result.Metadata["description"]
	if desc == "" {
		desc = "No description"
	}

	b.WriteString("### " + kind + ": " + result.ID + "\n")
	b.WriteString("**Description**: " + desc + "\n")
	b.WriteString(result.Content + "\n\n")
}

package rag

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the generation prompt. With retrieved chunks it
// labels each excerpt so the model can ground its answer; without any it
// falls back to a general-knowledge prompt.
func BuildPrompt(question string, chunks []RetrievedChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf(`You are StudyBuddy AI, an intelligent assistant that helps users understand and analyze their documents.

User Question: %s

Please provide a helpful and accurate response based on the question asked.
`, question)
	}

	var context strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "Document %d:\n%s", i+1, chunk.Text)
	}

	return fmt.Sprintf(`You are StudyBuddy AI, an intelligent assistant that helps users understand and analyze their documents.

Here are the relevant document excerpts for context:

%s

User Question: %s

Please provide a helpful and accurate response based on the provided documents. If the answer cannot be found in the documents, please say so clearly.
`, context.String(), question)
}

// BuildSummaryPrompt assembles the project-summary prompt from the
// project's metadata and its document filenames.
func BuildSummaryPrompt(projectName, description string, filenames []string) string {
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}

	return fmt.Sprintf(`Generate a comprehensive summary for the project %q.

The project contains %d documents:
%s

Please provide an overview of what this project might contain based on the document names and project description: %s.
`, projectName, len(filenames), strings.Join(filenames, ", "), description)
}

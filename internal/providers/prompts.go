package providers

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"learncards/internal/models"
)

const cardSchema = `{
  "type": "choice" | "boolean" | "fill",
  "question": "The question text",
  "options": ["Option A", "Option B", "Option C", "Option D"],
  "correctIndex": 0,
  "correctAnswer": "Answer string",
  "explanation": "Explanation of the answer",
  "timestamp": 12,
  "size": "small" | "large"
}`

func textSystemPrompt(count int) string {
	return fmt.Sprintf(`You are an educational assistant. Analyze the provided text and generate interactive learning cards.
The output must be a valid JSON array of objects and nothing else. Do not wrap it in markdown code fences.
Each object represents one card and follows this schema:
%s
"choice" cards need "options" and "correctIndex". "boolean" cards use "correctIndex" 0 for true and 1 for false.
"fill" cards need "correctAnswer". Omit "timestamp" for text input.
Generate exactly %d cards and mix the types.`, cardSchema, count)
}

func videoSystemPrompt(count int) string {
	return fmt.Sprintf(`You are an educational assistant. You are given key frames of a video in chronological order.
Each frame is preceded by the second at which it appears. Generate interactive learning cards about what the video teaches.
The output must be a valid JSON array of objects and nothing else. Do not wrap it in markdown code fences.
Each object represents one card and follows this schema:
%s
"choice" cards need "options" and "correctIndex". "boolean" cards use "correctIndex" 0 for true and 1 for false.
"fill" cards need "correctAnswer". Set "timestamp" to the second of the frame the card is about.
Generate exactly %d cards and mix the types.`, cardSchema, count)
}

// frameParts reads each frame from disk and interleaves a caption with the
// image as a base64 data URI.
func frameParts(frames []models.Frame) ([]ContentPart, error) {
	parts := make([]ContentPart, 0, len(frames)*2+1)
	parts = append(parts, ContentPart{Text: fmt.Sprintf("The video has %d key frames.", len(frames))})
	for _, f := range frames {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", f.Path, err)
		}
		parts = append(parts,
			ContentPart{Text: fmt.Sprintf("This image appears at second %d of the video.", f.TimestampSeconds)},
			ContentPart{ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)},
		)
	}
	return parts, nil
}

func textParts(text string) []ContentPart {
	return []ContentPart{{Text: strings.TrimSpace(text)}}
}

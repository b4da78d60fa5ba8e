package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ContentType
	}{
		{
			name:    "fenced code",
			content: "Here is the fix:\n```go\nfunc main() {}\n```",
			want:    ContentTypeCode,
		},
		{
			name:    "bare code",
			content: "func handler(w http.ResponseWriter) { return; }",
			want:    ContentTypeCode,
		},
		{
			name:    "markdown headers",
			content: "# Release Notes\n\n- fixed a bug\n- added a feature",
			want:    ContentTypeMarkdown,
		},
		{
			name:    "conversation",
			content: "Human: can you summarize?\nAssistant: sure, here it is.",
			want:    ContentTypeConversation,
		},
		{
			name:    "plain prose",
			content: "the meeting covered vacation schedules and nothing else of note",
			want:    ContentTypePlain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.content))
		})
	}
}

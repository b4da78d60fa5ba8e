package compression

import (
	"regexp"
	"strings"
)

// ContentType labels the kind of content a unit holds. It only
// influences the prompt's content-type slot.
type ContentType string

const (
	ContentTypeCode         ContentType = "code"
	ContentTypeMarkdown     ContentType = "markdown"
	ContentTypeConversation ContentType = "conversation"
	ContentTypePlain        ContentType = "plain"
)

var (
	fencedCodeRe   = regexp.MustCompile("```")
	codeKeywordRe  = regexp.MustCompile(`\b(func|function|def|class|interface|struct|return|import)\b`)
	mdHeaderRe     = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	mdListRe       = regexp.MustCompile(`(?m)^\s*[-*+]\s+\S`)
	speakerLabelRe = regexp.MustCompile(`(?m)^(Human|Assistant|User|System|AI):\s`)
)

// DetectContentType classifies content with cheap marker heuristics.
// Used when a block carries no semantic type tag.
func DetectContentType(content string) ContentType {
	if speakerLabelRe.MatchString(content) {
		return ContentTypeConversation
	}
	if fencedCodeRe.MatchString(content) {
		return ContentTypeCode
	}
	if codeKeywordRe.MatchString(content) && strings.ContainsAny(content, "{};") {
		return ContentTypeCode
	}
	if mdHeaderRe.MatchString(content) || mdListRe.MatchString(content) {
		return ContentTypeMarkdown
	}
	return ContentTypePlain
}

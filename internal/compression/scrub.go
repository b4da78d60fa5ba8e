package compression

import "regexp"

// Secret patterns scrubbed from content before it leaves the process.
// Order matters: named environment assignments first so the generic
// patterns do not mangle them.
var scrubPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{
		regexp.MustCompile(`(ANTHROPIC_API_KEY|OPENAI_API_KEY|OPENROUTER_API_KEY|GITHUB_TOKEN|AWS_SECRET_ACCESS_KEY)\s*=\s*\S+`),
		"$1=[REDACTED]",
	},
	{
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
		"[REDACTED:ANTHROPIC_KEY]",
	},
	{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),
		"[REDACTED:API_KEY]",
	},
	{
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-.=]+`),
		"[REDACTED:BEARER_TOKEN]",
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|password|passwd)\s*[:=]\s*["']?[^"'\s]+["']?`),
		"$1=[REDACTED]",
	},
}

// scrubSecrets redacts credential-looking substrings so they are never
// sent to a summarization backend.
func scrubSecrets(content string) string {
	for _, p := range scrubPatterns {
		content = p.re.ReplaceAllString(content, p.replacement)
	}
	return content
}

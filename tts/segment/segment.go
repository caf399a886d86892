// Package segment turns extracted content into the ordered sequence of
// speakable chunks handed to the speech engine, one utterance per chunk.
package segment

import (
	"regexp"
	"strings"

	"github.com/audiotext/audiotext/content"
)

const (
	// wordsPerSecond is the advisory speaking rate used for the synthetic
	// duration. It feeds the UI's proportional scrub bar and seek math only
	// and is never treated as wall-clock accurate.
	wordsPerSecond = 3.0

	// minDuration is the fallback duration in seconds for empty or
	// unusually short content.
	minDuration = 60.0

	// maxInferredAuthor bounds how long a leading "by X" byline may be
	// before we stop treating it as an author name.
	maxInferredAuthor = 30
)

var (
	imageRe     = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	linkRe      = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	rawURLRe    = regexp.MustCompile(`https?://\S+`)
	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	mdSyntaxRe  = regexp.MustCompile("[#*_>~`]")
	publishedRe = regexp.MustCompile(`(?i)(published|posted) on .+`)
	shareRe     = regexp.MustCompile(`(?i)share on .+`)
	bylineRe    = regexp.MustCompile(`(?im)^(?:written |authored )?by\s+([A-Za-z ]+)`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)

	// chunkRe splits on sentence terminators and newlines, keeping the
	// terminator with the piece it ends.
	chunkRe = regexp.MustCompile(`[^.!?\n]+[.!?\n]*`)
)

// Chunks derives the speakable chunk sequence for one playback session.
// It is pure and deterministic, and always returns at least one chunk.
func Chunks(c *content.ExtractedContent) []string {
	title := strings.TrimSpace(c.Title)
	author := strings.TrimSpace(c.Author)
	if strings.EqualFold(author, "unknown") {
		author = ""
	}

	text := clean(c.Content)

	// Infer the author from a leading byline when the extractor didn't
	// provide one, and drop the byline to avoid narrating it twice.
	if author == "" {
		if m := bylineRe.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) > 0 && len(name) < maxInferredAuthor {
				author = name
				text = strings.TrimSpace(strings.Replace(text, m[0], "", 1))
			}
		}
	}

	// Strip a lead-in that just repeats the title or the "by {author}"
	// phrase; the intro chunk covers both.
	if title != "" && strings.HasPrefix(strings.ToLower(text), strings.ToLower(title)) {
		text = strings.TrimSpace(text[len(title):])
	}
	if author != "" {
		byAuthor := regexp.MustCompile(`(?i)^by ` + regexp.QuoteMeta(author))
		text = strings.TrimSpace(byAuthor.ReplaceAllString(text, ""))
	}

	text = strings.TrimSpace(newlinesRe.ReplaceAllString(text, "\n\n"))

	chunks := split(text)

	// The intro is a single chunk so the first utterance announces the
	// whole "{title}. By {author}." phrase in one go.
	if title != "" && !strings.HasPrefix(text, title) {
		intro := title + "."
		if author != "" {
			intro += " By " + author + "."
		}
		chunks = append([]string{intro}, chunks...)
	}

	if len(chunks) == 0 {
		chunks = []string{text}
	}
	return chunks
}

// clean strips markdown noise and boilerplate that reads badly aloud.
func clean(text string) string {
	text = publishedRe.ReplaceAllString(text, "")
	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = rawURLRe.ReplaceAllString(text, "")
	text = codeBlockRe.ReplaceAllString(text, "")
	text = mdSyntaxRe.ReplaceAllString(text, "")
	text = shareRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// split cuts text on sentence terminators and newlines, retaining the
// terminator with each piece. Empty pieces are dropped.
func split(text string) []string {
	pieces := chunkRe.FindAllString(text, -1)
	chunks := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

// IsMeta reports whether a chunk is a pure metadata line ("Title:" or
// "Author:") that the UI may hide. Chunk indices are never altered by
// hiding, so the predicate is safe to apply per chunk.
func IsMeta(chunk string) bool {
	s := strings.ToLower(strings.TrimSpace(chunk))
	return strings.HasPrefix(s, "title:") || strings.HasPrefix(s, "author:")
}

// EstimateDuration assigns the session a synthetic total duration in
// seconds, derived from chunk word counts at ~3 words/sec with a floor for
// unusually short content.
func EstimateDuration(chunks []string) float64 {
	total := 0.0
	for _, c := range chunks {
		total += float64(len(strings.Fields(c))) / wordsPerSecond
	}
	if total < 1 {
		return minDuration
	}
	return total
}

// WordCount sums the words across all chunks.
func WordCount(chunks []string) int {
	n := 0
	for _, c := range chunks {
		n += len(strings.Fields(c))
	}
	return n
}

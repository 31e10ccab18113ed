package script

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/podforge/podforge/internal/webpage"
)

// analysisPreviewLen bounds per-source content in analysis mode; strategy
// recommendations don't need the full text and the smaller prompt saves tokens.
const analysisPreviewLen = 3000

type promptData struct {
	Context  string
	Fetched  int
	Style    string
	Length   string
	Tone     string
	Audience string
	Sources  string

	NarrativeStyle  string
	NarratorVoice   string
	PodcastType     string
	ComparisonAngle string
}

var promptTemplates = map[Mode]*template.Template{
	ModeEpisode: template.Must(template.New("episode").Parse(`You are a professional podcast scriptwriter. Based on the following source material from {{.Fetched}} webpages, write a complete podcast script.

{{.Context}}

PODCAST SPECIFICATIONS:
- Style: {{.Style}}
- Episode Length: {{.Length}}
- Tone: {{.Tone}}
- Target Audience: {{.Audience}}

SCRIPT REQUIREMENTS:
1. FORMAT: Write in standard podcast script format with clear speaker labels
2. NATURAL DIALOGUE: Make it sound like reading facts based on findings from research
3. PACING: Include natural pauses [PAUSE], transitions, and segment breaks
4. AUTHENTICITY: Make the narrator sound like they're reporting based on findings
5. CITATIONS: Naturally mention sources when referencing specific information

SOURCES TO CREDIT:
{{.Sources}}

Generate a complete, production-ready podcast script that brings this content to life in an engaging way for {{.Audience}}.

Make sure the script focuses only on delivering information. No need to add additional flair. Just information from the sources and context.

Make sure the script matches the {{.Length}} target length.

When generating the text do not add tone cues and do not add stage comments, just have the text itself.
`)),

	ModeStorytelling: template.Must(template.New("storytelling").Parse(`You are a master storyteller and podcast scriptwriter. Based on the following source material, create a captivating narrative podcast script.

{{.Context}}

NARRATIVE SPECIFICATIONS:
- Style: {{.NarrativeStyle}}
- Voice: {{.NarratorVoice}}

STORYTELLING REQUIREMENTS:
1. Craft a compelling narrative arc (setup, rising action, climax, resolution)
2. Use vivid, descriptive language that paints pictures in the listener's mind
3. Build suspense and maintain engagement throughout
4. Include scene-setting and atmospheric descriptions
5. Use pacing effectively:
   - Short sentences for tension
   - Longer, flowing sentences for reflection
   - Strategic [PAUSE] markers for dramatic effect
6. Incorporate direct quotes from sources where powerful
7. Make the listener feel like they're experiencing the story with the narrator
8. Use narrative techniques:
   - Foreshadowing (hint at what's coming)
   - Callbacks (reference earlier points with new meaning)
   - Revelations (strategic information drops)
9. Include [MUSIC CUE: description] where it would enhance the story

Transform this information into a story that people will want to hear from beginning to end.`)),

	ModeAnalysis: template.Must(template.New("analysis").Parse(`You are a podcast content strategist. Analyze the following sources to provide strategic recommendations for creating a {{.PodcastType}} podcast.

{{.Context}}

ANALYSIS FRAMEWORK:
Provide a comprehensive analysis with:

1. **MAIN THEMES**: What are the core topics across all sources? Identify 3-5 major themes.

2. **HOOK IDEAS**: Suggest 5 compelling ways to open the podcast that will grab listeners immediately.

3. **KEY TALKING POINTS**: List the main points to cover in order. Create a logical flow.

4. **INTERESTING ANGLES**: What are 3-4 unique perspectives or angles that aren't obvious?

5. **POTENTIAL SEGMENTS**: How should the episode be structured? Suggest segment titles and durations.

6. **QUESTIONS TO ADDRESS**: What would the audience want to know? List 7-10 questions.

7. **STORYTELLING OPPORTUNITIES**: Identify specific anecdotes, examples, or narrative moments.

8. **RECOMMENDED FORMAT**: What podcast style would work best and why?

9. **ESTIMATED LENGTH**: Based on the depth of content, how long should this episode be?

10. **CHALLENGES**: What concepts might be difficult to explain in audio?

11. **PRODUCTION NOTES**: Suggestions for music, sound effects, or pacing?

Be specific and actionable. Reference actual content from the sources.`)),

	ModeComparison: template.Must(template.New("comparison").Parse(`You are creating a podcast that explores {{.ComparisonAngle}}.

{{.Context}}

TASK:
Create a podcast script that:

1. **INTRODUCES THE LANDSCAPE**: What's the topic and why do different views exist?

2. **PRESENTS EACH PERSPECTIVE**:
   - Fairly represent each source's viewpoint
   - Use direct quotes where powerful
   - Explain the reasoning behind each position

3. **COMPARES AND CONTRASTS**:
   - Where do they agree?
   - Where do they disagree?
   - What are the key points of tension?

4. **ANALYZES**:
   - Which arguments are stronger and why?
   - What evidence supports each side?

5. **SYNTHESIZES**:
   - What can we learn from examining all perspectives?
   - Is there a middle ground?
   - What questions remain unanswered?

FORMAT:
- Conversational but analytical tone
- Include [PAUSE] for reflection moments
- Structure with clear segments
- 20-30 minute script length

Make it balanced, thoughtful, and engaging.`)),
}

func contextHeader(mode Mode) string {
	switch mode {
	case ModeStorytelling:
		return "# Story Source Material:\n\n"
	case ModeAnalysis:
		return "# Content to Analyze:\n\n"
	case ModeComparison:
		return "# Sources to Compare:\n\n"
	default:
		return "# Source Material from Webpages:\n\n"
	}
}

// buildContext assembles the labeled context document from fetched pages,
// preserving original URL order so source numbering matches citation
// numbering. It also returns the "- title (url)" lines for the successful
// sources and the success count.
func buildContext(pages []*webpage.Page, mode Mode) (string, []string, int) {
	var b strings.Builder
	b.WriteString(contextHeader(mode))

	var sourceLines []string
	fetched := 0

	for i, page := range pages {
		if page.Success {
			content := page.Content
			if mode == ModeAnalysis {
				if runes := []rune(content); len(runes) > analysisPreviewLen {
					content = string(runes[:analysisPreviewLen]) + "..."
				}
			}
			fmt.Fprintf(&b, "## Source %d: %s\n", i+1, page.Title)
			fmt.Fprintf(&b, "URL: %s\n\n", page.URL)
			fmt.Fprintf(&b, "%s\n\n---\n\n", content)
			fetched++
			sourceLines = append(sourceLines, fmt.Sprintf("- %s (%s)", page.Title, page.URL))
		} else {
			fmt.Fprintf(&b, "## Source %d: FAILED\n", i+1)
			fmt.Fprintf(&b, "URL: %s\n", page.URL)
			fmt.Fprintf(&b, "Error: %s\n\n", page.Error)
		}
	}

	return b.String(), sourceLines, fetched
}

func buildPrompt(req Request, contextDoc string, sourceLines []string, fetched int) (string, error) {
	tmpl, ok := promptTemplates[req.Mode]
	if !ok {
		return "", fmt.Errorf("no prompt template for mode %q", req.Mode)
	}

	data := promptData{
		Context:         contextDoc,
		Fetched:         fetched,
		Style:           string(req.Style),
		Length:          string(req.Length),
		Tone:            string(req.Tone),
		Audience:        req.Audience,
		Sources:         strings.Join(sourceLines, "\n"),
		NarrativeStyle:  req.NarrativeStyle,
		NarratorVoice:   req.NarratorVoice,
		PodcastType:     req.PodcastType,
		ComparisonAngle: req.ComparisonAngle,
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kapu/sales-skills-engine/internal/domain"
)

type PageType string

const (
	PageMeeting  PageType = "meeting"
	PageRoleplay PageType = "roleplay"
	PageUnknown  PageType = "unknown"
)

// InternalMatchThreshold is the minimum name similarity for a transcript
// speaker to inherit a participant's internal flag.
const InternalMatchThreshold = 0.78

const (
	selMeetingEntry     = `[class*="TranscriptEntry-module__transcript-entry--"]`
	selMeetingSpeaker   = `[class*="SpeakerInfoHeader-module__speaker-info-wrapper--"] > div > span:first-child`
	selMeetingText      = `[class*="EntryText-module__entry-text--"]`
	selScrubber         = `[class*="MeetingScrubbers-module__scrubberContainer--"]`
	selScrubberName     = `[class*="MeetingScrubbers-module__displayName--"]`
	selScrubberInternal = `[class*="MeetingScrubbers-module__internal--"]`

	selRoleplayMarker  = `[data-testid="view-assessment"]`
	selRoleplayEntry   = `div[class*="ViewAssessmentTranscriptEntry-module__entry--"]`
	selRoleplaySpeaker = `div[class*="ViewAssessmentTranscriptEntry-module__entry-speaker--"] span`
	selRoleplayText    = `span[class*="ViewAssessmentTranscriptEntry-module__entry-text--"]`
	selSkillCard       = `div[data-testid="assessment-skill-card"]`
	selSkillContainer  = `div[class*="AssessmentSkillList-module__skill-card-container--"]`
	selSkillTitle      = `h4[class*="AssessmentSkillCardSummary-module__title--"]`
	selSkillScore      = `div[class*="AssessmentSkillCardFeedback-module__score-value--"]`
)

type Speaker struct {
	Name       string `json:"name"`
	IsInternal bool   `json:"isInternal"`
}

// Page is what can be lifted from a saved call page, shaped for the
// qualify-skills and coach-roleplay endpoints.
type Page struct {
	Type           PageType             `json:"type"`
	Transcript     string               `json:"transcript"`
	Speakers       []Speaker            `json:"speakers,omitempty"`
	AssessedSkills []domain.ScoredSkill `json:"assessedSkills,omitempty"`
}

func DetectPageType(doc *goquery.Document) PageType {
	if doc.Find(selRoleplayMarker).Length() > 0 {
		return PageRoleplay
	}
	if doc.Find(selMeetingEntry).Length() > 0 {
		return PageMeeting
	}
	return PageUnknown
}

func Extract(doc *goquery.Document) (*Page, error) {
	switch DetectPageType(doc) {
	case PageRoleplay:
		return extractRoleplay(doc)
	case PageMeeting:
		return extractMeeting(doc)
	default:
		return nil, fmt.Errorf("unrecognised page: no transcript entries found")
	}
}

func extractRoleplay(doc *goquery.Document) (*Page, error) {
	entries := doc.Find(selRoleplayEntry)
	if entries.Length() == 0 {
		return nil, fmt.Errorf("could not find transcript entries")
	}

	lines := make([]string, 0, entries.Length())
	entries.Each(func(_ int, entry *goquery.Selection) {
		speaker := strings.TrimSpace(entry.Find(selRoleplaySpeaker).First().Text())
		if speaker == "" {
			speaker = "Unknown"
		}
		text := strings.TrimSpace(entry.Find(selRoleplayText).First().Text())
		if text != "" {
			lines = append(lines, speaker+": "+text)
		}
	})

	cards := doc.Find(selSkillCard)
	if cards.Length() == 0 {
		return nil, fmt.Errorf("could not find skill cards")
	}

	skills := make([]domain.ScoredSkill, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Closest(selSkillContainer).Find(selSkillTitle).First().Text())

		score := 0
		card.Find(selSkillScore).Each(func(_ int, node *goquery.Selection) {
			// the selected score carries an extra modifier class
			class, _ := node.Attr("class")
			if len(strings.Fields(class)) <= 1 {
				return
			}
			if n, err := strconv.Atoi(strings.TrimSpace(node.Text())); err == nil {
				score = n
			}
		})

		if name != "" && score > 0 {
			skills = append(skills, domain.ScoredSkill{Skill: name, Score: score})
		}
	})

	return &Page{
		Type:           PageRoleplay,
		Transcript:     strings.Join(lines, "\n"),
		AssessedSkills: skills,
	}, nil
}

func extractMeeting(doc *goquery.Document) (*Page, error) {
	roles := speakerRoles(doc)

	var (
		lines       []string
		speakers    []Speaker
		seen        = make(map[string]int)
		lastSpeaker string
	)
	doc.Find(selMeetingEntry).Each(func(_ int, entry *goquery.Selection) {
		speakerSel := entry.Find(selMeetingSpeaker).First()
		textSel := entry.Find(selMeetingText).First()
		if speakerSel.Length() == 0 || textSel.Length() == 0 {
			return
		}
		name := strings.TrimSpace(speakerSel.Text())
		text := strings.Join(strings.Fields(textSel.Text()), " ")

		if _, ok := seen[name]; !ok {
			seen[name] = len(speakers)
			speakers = append(speakers, Speaker{Name: name})
		}

		// consecutive turns by one speaker are merged
		if name == lastSpeaker && len(lines) > 0 {
			lines[len(lines)-1] += " " + text
			return
		}
		lines = append(lines, name+": "+text)
		lastSpeaker = name
	})

	for i := range speakers {
		speakers[i].IsInternal = classifySpeaker(speakers[i].Name, roles)
	}

	return &Page{
		Type:       PageMeeting,
		Transcript: strings.Join(lines, "\n"),
		Speakers:   speakers,
	}, nil
}

type participant struct {
	name     string
	internal bool
}

func speakerRoles(doc *goquery.Document) []participant {
	var out []participant
	doc.Find(selScrubber).Each(func(_ int, c *goquery.Selection) {
		nameSel := c.Find(selScrubberName).First()
		if nameSel.Length() == 0 {
			return
		}
		out = append(out, participant{
			name:     strings.TrimSpace(nameSel.Text()),
			internal: c.Find(selScrubberInternal).Length() > 0,
		})
	})
	return out
}

// classifySpeaker uses an exact participant match, else the most similar
// participant name when it clears InternalMatchThreshold.
func classifySpeaker(name string, roles []participant) bool {
	for _, p := range roles {
		if p.name == name {
			return p.internal
		}
	}

	best, internal := -1.0, false
	for _, p := range roles {
		if score := NameSimilarity(name, p.name); score > best {
			best, internal = score, p.internal
		}
	}
	return best >= InternalMatchThreshold && internal
}

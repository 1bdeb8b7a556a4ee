package ai

import (
	"regexp"
	"strconv"
	"strings"

	"huddle/models"
	"huddle/services/slots"
)

// Tool names returned in AIResponse.Tool.
const (
	ToolSearchPeople   = "search_people"
	ToolSearchEvents   = "search_events"
	ToolAnalyzeProfile = "analyze_profile"
	ToolRefineResults  = "refine_results"
	ToolBookGroup      = "book_group"
	ToolCancelBooking  = "cancel_booking"
	ToolChat           = "chat"
)

var knownActivities = []string{
	"running", "cycling", "tennis", "padel", "climbing", "yoga",
	"hiking", "swimming", "football", "basketball", "badminton",
}

var activityAliases = map[string]string{
	"run":        "running",
	"jog":        "running",
	"bike":       "cycling",
	"ride":       "cycling",
	"boulder":    "climbing",
	"hike":       "hiking",
	"swim":       "swimming",
	"soccer":     "football",
	"hoops":      "basketball",
	"table tenn": "tennis",
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var headcountPattern = regexp.MustCompile(`\b(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten)\s+(?:people|persons|players|others|friends|partners|more)\b`)

// message is what the keyword parser extracts from one chat message.
type message struct {
	text       string
	tool       string
	activity   string
	headcount  int
	slots      []string
	level      string
	pace       string
	gender     string
	intention  models.CancelIntention
	personName string
}

func parse(text string, aiCtx *models.AIContext) message {
	lower := strings.ToLower(strings.TrimSpace(text))
	m := message{
		text:      text,
		activity:  parseActivity(lower),
		headcount: parseHeadcount(lower),
		slots:     parseSlots(lower),
		level:     parseLevel(lower),
		pace:      parsePace(lower),
		gender:    parseGender(lower),
		intention: parseIntention(lower),
	}
	m.personName = parsePerson(text, aiCtx.LastSearch)
	m.tool = classify(lower, m, aiCtx)
	return m
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func classify(lower string, m message, aiCtx *models.AIContext) string {
	switch {
	case containsAny(lower, "cancel", "can't make it", "cannot make it", "drop out"):
		return ToolCancelBooking
	case aiCtx.CancelFlowID != "" && m.intention != models.IntentionUnset:
		return ToolCancelBooking
	case containsAny(lower, "book", "organize", "organise", "set up", "arrange"):
		return ToolBookGroup
	case containsAny(lower, "event", "happening", "meetup"):
		return ToolSearchEvents
	case m.personName != "" && containsAny(lower, "tell me about", "who is", "profile", "more about"):
		return ToolAnalyzeProfile
	case len(aiCtx.LastSearch) > 0 && containsAny(lower, "only", "refine", "filter", "just ") &&
		(m.level != "" || m.pace != "" || m.gender != "" || len(m.slots) > 0):
		return ToolRefineResults
	case containsAny(lower, "find", "search", "looking for", "partner", "people", "someone"):
		return ToolSearchPeople
	default:
		return ToolChat
	}
}

func parseActivity(lower string) string {
	for _, a := range knownActivities {
		if strings.Contains(lower, a) {
			return a
		}
	}
	for alias, a := range activityAliases {
		if strings.Contains(lower, alias) {
			return a
		}
	}
	return ""
}

func parseHeadcount(lower string) int {
	match := headcountPattern.FindStringSubmatch(lower)
	if match == nil {
		return 0
	}
	if n, ok := numberWords[match[1]]; ok {
		return n
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// parseSlots recognises slot names written with spaces ("weekend morning")
// and the bare parts of the week ("weekday evenings").
func parseSlots(lower string) []string {
	normalized := strings.ReplaceAll(lower, "-", " ")
	var out []string
	for _, name := range slots.Names() {
		if strings.Contains(normalized, strings.ReplaceAll(name, "_", " ")) || strings.Contains(lower, name) {
			out = append(out, name)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, part := range []string{"morning", "afternoon", "evening"} {
		if !strings.Contains(normalized, part) {
			continue
		}
		switch {
		case strings.Contains(normalized, "weekend") || strings.Contains(normalized, "saturday") || strings.Contains(normalized, "sunday"):
			out = append(out, "weekend_"+part)
		case strings.Contains(normalized, "weekday") || strings.Contains(normalized, "after work"):
			out = append(out, "weekday_"+part)
		default:
			out = append(out, "weekday_"+part, "weekend_"+part)
		}
	}
	return out
}

func parseLevel(lower string) string {
	switch {
	case containsAny(lower, "beginner", "newbie", "new to"):
		return "beginner"
	case containsAny(lower, "intermediate"):
		return "intermediate"
	case containsAny(lower, "advanced", "expert", "competitive"):
		return "advanced"
	}
	return ""
}

func parsePace(lower string) string {
	switch {
	case containsAny(lower, "easy pace", "slow", "relaxed", "casual"):
		return "easy"
	case containsAny(lower, "moderate", "steady"):
		return "moderate"
	case containsAny(lower, "fast", "quick pace", "tempo"):
		return "fast"
	}
	return ""
}

func parseGender(lower string) string {
	switch {
	case containsAny(lower, "women", "woman", "female", "girls", "ladies"):
		return "female"
	case containsAny(lower, " men", "male", "guys"):
		return "male"
	case containsAny(lower, "mixed", "anyone"):
		return "any"
	}
	return ""
}

func parseIntention(lower string) models.CancelIntention {
	switch {
	case containsAny(lower, "reschedule", "another time", "different time", "move it"):
		return models.IntentionReschedule
	case containsAny(lower, "leave", "new group", "drop out"):
		return models.IntentionLeave
	}
	return models.IntentionUnset
}

// parsePerson finds a name from the last search in the message.
func parsePerson(text string, last []models.Participant) string {
	lower := strings.ToLower(text)
	for _, p := range last {
		if p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name)) {
			return p.Name
		}
	}
	return ""
}

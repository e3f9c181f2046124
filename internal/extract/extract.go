// Package extract recovers typed product records from free-form agent
// replies. Upstream reply formats are inconsistent, so detection is a
// cascading vote over cumulative evidence and extraction is a chain of
// strategies tried in priority order. Both are best-effort: no input
// ever causes an error, only an empty result.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// maxRecords caps every extraction result, preserving discovery order.
const maxRecords = 3

// Record is one product recovered from reply text. Title is always
// set; every other field is optional and left at its zero value when
// the text does not carry it.
type Record struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title"`
	Price          float64  `json:"price,omitempty"`
	Rating         float64  `json:"rating,omitempty"`
	Storage        string   `json:"storage,omitempty"`
	Color          string   `json:"color,omitempty"`
	RAM            string   `json:"ram,omitempty"`
	Processor      string   `json:"processor,omitempty"`
	ScreenSize     float64  `json:"screen_size,omitempty"`
	Stock          string   `json:"stock,omitempty"`
	WaterResistant *bool    `json:"water_resistant,omitempty"`
}

// Field-label vocabulary and marker glyphs used by the detection vote.
var (
	fieldLabels = []string{"price:", "color:", "storage:", "ram:", "processor:", "rating:", "stock:", "screen:"}
	glyphs      = []string{"📱", "💰", "💾", "🎨", "📺", "📦", "⭐", "❌"}
)

var (
	// strictBlockRe matches one decorated product block: a title line
	// immediately followed by a price line.
	strictBlockRe = regexp.MustCompile(`📱\s*([^\n]+)\n\s*💰\s*\$?([0-9]+(?:\.[0-9]+)?)`)

	// looseBlockRe tolerates intervening lines between title and price.
	looseBlockRe = regexp.MustCompile(`📱\s*([^\n]+)(?:\n[^\n📱]*)*?\n[^\n]*💰\s*\$?([0-9]+(?:\.[0-9]+)?)`)

	currencyRe   = regexp.MustCompile(`\$\s*([0-9]+(?:\.[0-9]+)?)`)
	ratingRe     = regexp.MustCompile(`(?:⭐|[Rr]ating:?)\s*([0-9]+(?:\.[0-9]+)?)`)
	storageRe    = regexp.MustCompile(`(?:💾\s*|[Ss]torage:?\s*)([0-9]+\s*[GT]B)`)
	colorRe      = regexp.MustCompile(`(?:🎨\s*|[Cc]olor:?\s*)([A-Za-z ]+?)(?:\n|,|$)`)
	ramRe        = regexp.MustCompile(`([0-9]+\s*GB)\s*RAM|RAM:?\s*([0-9]+\s*GB)`)
	processorRe  = regexp.MustCompile(`[Pp]rocessor:?\s*([A-Za-z0-9][A-Za-z0-9 \-]*?)(?:\n|,|$)`)
	screenRe     = regexp.MustCompile(`(?:📺\s*|[Ss]creen(?: [Ss]ize)?:?\s*)([0-9]+(?:\.[0-9]+)?)"?`)
	stockRe      = regexp.MustCompile(`(?:📦\s*)?[Ss]tock:?\s*([0-9]+)`)
	countRe      = regexp.MustCompile(`[0-9]+\s+products?\s+found`)
	labelValueRe = regexp.MustCompile(`(?i)(price|color|storage|ram|processor|rating|stock)\s*[:=]\s*([^\n,;]+)`)
)

// IsStructuredReply reports whether text looks like a structured
// product reply. Evidence is checked strongest first; each stage only
// runs when the previous one found nothing.
func IsStructuredReply(text string) bool {
	if text == "" {
		return false
	}

	// 1. Strict decorated template.
	if strictBlockRe.MatchString(text) {
		return true
	}

	// 2. Three distinct label or glyph hits.
	lower := strings.ToLower(text)
	hits := 0
	for _, label := range fieldLabels {
		if strings.Contains(lower, label) {
			hits++
		}
	}
	for _, g := range glyphs {
		if strings.Contains(text, g) {
			hits++
		}
	}
	if hits >= 3 {
		return true
	}

	// 3. Machine-readable key co-occurrence.
	if strings.Contains(lower, `"title"`) &&
		(strings.Contains(lower, `"price"`) || strings.Contains(lower, `"brand"`) || strings.Contains(lower, `"color"`)) {
		return true
	}

	// 4. Loose phrasing or an explicit result count.
	if strings.Contains(lower, "found") || strings.Contains(lower, "here") {
		if strings.Contains(lower, "product") || strings.Contains(lower, "phone") || strings.Contains(lower, "device") {
			return true
		}
	}
	return countRe.MatchString(lower)
}

// Extract recovers at most maxRecords records from text, trying each
// strategy in order until one yields a result. It never panics; any
// parsing failure yields an empty slice instead.
func Extract(text string) (records []Record) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
		}
	}()

	if text == "" {
		return nil
	}

	for _, strategy := range []func(string) []Record{
		extractJSON,
		extractStrict,
		extractLoose,
		extractPerLine,
		extractParagraphs,
	} {
		if records = strategy(text); len(records) > 0 {
			break
		}
	}

	if len(records) > maxRecords {
		records = records[:maxRecords]
	}
	return records
}

// extractJSON parses embedded JSON-object substrings and keeps those
// carrying an identifying key.
func extractJSON(text string) []Record {
	var records []Record
	for _, raw := range jsonObjects(text) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			continue
		}
		if _, ok := obj["title"]; !ok {
			if _, ok := obj["id"]; !ok {
				continue
			}
		}

		rec := Record{
			ID:        stringField(obj, "id"),
			Title:     stringField(obj, "title"),
			Price:     numberField(obj, "price"),
			Rating:    numberField(obj, "rating"),
			Storage:   stringField(obj, "storage"),
			Color:     stringField(obj, "color"),
			RAM:       stringField(obj, "ram"),
			Processor: stringField(obj, "processor"),
			Stock:     stringField(obj, "stock"),
		}
		if rec.Title == "" {
			rec.Title = rec.ID
		}
		records = append(records, rec)
	}
	return records
}

// jsonObjects returns balanced top-level {...} substrings of text.
func jsonObjects(text string) []string {
	var objs []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					objs = append(objs, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return objs
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(obj map[string]any, key string) float64 {
	switch v := obj[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "$"), 64)
		return f
	default:
		return 0
	}
}

// extractStrict captures decorated blocks whose price line directly
// follows the title line, then pulls auxiliary fields from the block.
func extractStrict(text string) []Record {
	return extractBlocks(text, strictBlockRe)
}

// extractLoose tolerates intervening lines between title and price.
func extractLoose(text string) []Record {
	return extractBlocks(text, looseBlockRe)
}

func extractBlocks(text string, re *regexp.Regexp) []Record {
	idx := re.FindAllStringSubmatchIndex(text, -1)
	if idx == nil {
		return nil
	}

	var records []Record
	for n, loc := range idx {
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		price, _ := strconv.ParseFloat(text[loc[4]:loc[5]], 64)

		// Auxiliary fields live between this block's start and the
		// next block (or end of text).
		end := len(text)
		if n+1 < len(idx) {
			end = idx[n+1][0]
		}
		block := text[loc[0]:end]

		rec := Record{Title: title, Price: price}
		fillAux(&rec, block)
		records = append(records, rec)
	}
	return records
}

// fillAux regex-extracts the optional fields from chunk, leaving
// absent ones at their zero values.
func fillAux(rec *Record, chunk string) {
	if m := ratingRe.FindStringSubmatch(chunk); m != nil {
		rec.Rating, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := storageRe.FindStringSubmatch(chunk); m != nil {
		rec.Storage = strings.ReplaceAll(m[1], " ", "")
	}
	if m := colorRe.FindStringSubmatch(chunk); m != nil {
		rec.Color = strings.TrimSpace(m[1])
	}
	if m := ramRe.FindStringSubmatch(chunk); m != nil {
		if m[1] != "" {
			rec.RAM = strings.ReplaceAll(m[1], " ", "")
		} else {
			rec.RAM = strings.ReplaceAll(m[2], " ", "")
		}
	}
	if m := processorRe.FindStringSubmatch(chunk); m != nil {
		rec.Processor = strings.TrimSpace(m[1])
	}
	if m := screenRe.FindStringSubmatch(chunk); m != nil {
		rec.ScreenSize, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := stockRe.FindStringSubmatch(chunk); m != nil {
		rec.Stock = m[1]
	} else if strings.Contains(chunk, "❌") || strings.Contains(strings.ToLower(chunk), "out of stock") {
		rec.Stock = "0"
	}
	fillWaterResistance(rec, chunk)
}

// fillWaterResistance derives the boolean feature from substring
// presence, checking for an adjacent negation.
func fillWaterResistance(rec *Record, chunk string) {
	lower := strings.ToLower(chunk)
	i := strings.Index(lower, "water resist")
	if i < 0 {
		i = strings.Index(lower, "water-resist")
	}
	if i < 0 {
		return
	}

	// Look back a few words for "no"/"not".
	windowStart := i - 20
	if windowStart < 0 {
		windowStart = 0
	}
	window := lower[windowStart:i]
	val := !strings.Contains(window, "not ") && !strings.Contains(window, "no ")
	rec.WaterResistant = &val
}

// extractPerLine treats any line carrying the title glyph and a
// currency amount as one record.
func extractPerLine(text string) []Record {
	var records []Record
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "📱") {
			continue
		}
		m := currencyRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price, _ := strconv.ParseFloat(m[1], 64)

		title := line[strings.Index(line, "📱")+len("📱"):]
		if j := currencyRe.FindStringIndex(title); j != nil {
			title = title[:j[0]]
		}
		title = strings.Trim(strings.TrimSpace(title), "-–: ")

		rec := Record{Title: title, Price: price}
		fillAux(&rec, line)
		records = append(records, rec)
	}
	return records
}

// extractParagraphs is the last resort: sections mentioning any field
// keyword yield generic label:value pairs.
func extractParagraphs(text string) []Record {
	var records []Record
	for _, section := range strings.Split(text, "\n\n") {
		lower := strings.ToLower(section)
		mentioned := false
		for _, kw := range []string{"price", "color", "storage", "ram", "processor"} {
			if strings.Contains(lower, kw) {
				mentioned = true
				break
			}
		}
		if !mentioned {
			continue
		}

		pairs := labelValueRe.FindAllStringSubmatch(section, -1)
		if pairs == nil {
			continue
		}

		var rec Record
		for _, p := range pairs {
			value := strings.TrimSpace(p[2])
			switch strings.ToLower(p[1]) {
			case "price":
				rec.Price, _ = strconv.ParseFloat(strings.TrimPrefix(value, "$"), 64)
			case "rating":
				rec.Rating, _ = strconv.ParseFloat(value, 64)
			case "color":
				rec.Color = value
			case "storage":
				rec.Storage = strings.ReplaceAll(value, " ", "")
			case "ram":
				rec.RAM = strings.ReplaceAll(value, " ", "")
			case "processor":
				rec.Processor = value
			case "stock":
				rec.Stock = value
			}
		}
		if rec.Title == "" {
			rec.Title = firstLine(section)
		}
		fillWaterResistance(&rec, section)
		records = append(records, rec)
	}
	return records
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	// Drop a trailing label fragment, keeping only the lead-in.
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
